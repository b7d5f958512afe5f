package spec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
)

// Field names reported in ValidationError.
const (
	FieldID        = "Id"
	FieldVersion   = "Version"
	FieldSignature = "Signature"
	FieldChannel   = "Channel"
	FieldChannels  = "Channels"
	FieldTarget    = "Target"
	FieldFeeds     = "Feeds"

	// FieldSignatureDigest names the Sha1/Sha256 pair, exactly one of which must be set.
	FieldSignatureDigest = "Signature.Sha1|Sha256"
)

var errVersionEmpty = errors.New("must not be empty")

var (
	// fieldValidate checks single values with tag rules.
	//nolint:gochecknoglobals // Shared validator instance, configured once in init.
	fieldValidate *validator.Validate

	channelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{3,15}$`)
	sha1Pattern        = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	sha256Pattern      = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

//nolint:gochecknoinits // Custom validations must be registered before use.
func init() {
	fieldValidate = validator.New()

	_ = fieldValidate.RegisterValidation("channelname", func(fl validator.FieldLevel) bool {
		return channelNamePattern.MatchString(fl.Field().String())
	})
}

// Validate checks the app and returns the first violation as a *ValidationError.
// Order: id and version, signature, current channel, channel list, target, feed list.
func Validate(app *SnapApp) error {
	if app == nil {
		return &ValidationError{Field: "App", Message: "must not be nil"}
	}

	checks := []func(*SnapApp) error{
		validateIdentity,
		validateSignature,
		validateCurrentChannel,
		validateChannels,
		validateTarget,
		validateFeeds,
	}

	for _, check := range checks {
		if err := check(app); err != nil {
			return err
		}
	}

	return nil
}

// ValidateVersion checks that v is a stable semantic version without build metadata.
func ValidateVersion(v string) error {
	if v == "" {
		return errVersionEmpty
	}

	canonical := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(canonical) || strings.Count(canonical, ".") < 2 {
		return fmt.Errorf("%q is not a semantic version", v)
	}

	if semver.Prerelease(canonical) != "" {
		return fmt.Errorf("%q is a prerelease, use channels instead", v)
	}

	if semver.Build(canonical) != "" {
		return fmt.Errorf("%q carries a release label, use channels instead", v)
	}

	return nil
}

func validateIdentity(app *SnapApp) error {
	if strings.TrimSpace(app.ID) == "" {
		return invalid(app, FieldID, "must not be empty")
	}

	if err := ValidateVersion(app.Version); err != nil {
		return invalid(app, FieldVersion, "%v", err)
	}

	return nil
}

func validateSignature(app *SnapApp) error {
	signature := app.Signature
	if signature == nil {
		return nil
	}

	if strings.TrimSpace(signature.CertificateSubjectName) == "" {
		return invalid(app, FieldSignature+".CertificateSubjectName", "must not be empty")
	}

	hasSha1, hasSha256 := signature.Sha1 != "", signature.Sha256 != ""
	if hasSha1 == hasSha256 {
		return invalid(app, FieldSignatureDigest, "exactly one of Sha1 or Sha256 must be set")
	}

	if hasSha1 && !sha1Pattern.MatchString(signature.Sha1) {
		return invalid(app, FieldSignature+".Sha1", "must be 40 hex characters")
	}

	if hasSha256 && !sha256Pattern.MatchString(signature.Sha256) {
		return invalid(app, FieldSignature+".Sha256", "must be 64 hex characters")
	}

	return nil
}

func validateCurrentChannel(app *SnapApp) error {
	if app.Channel == nil {
		return invalid(app, FieldChannel, "must be set")
	}

	return validateChannel(app, FieldChannel, app.Channel)
}

func validateChannels(app *SnapApp) error {
	if len(app.Channels) == 0 {
		return invalid(app, FieldChannels, "at least one channel is required")
	}

	seen := make(map[string]struct{}, len(app.Channels))

	for i, channel := range app.Channels {
		field := fmt.Sprintf("%s[%d]", FieldChannels, i)
		if channel == nil {
			return invalid(app, field, "must not be nil")
		}

		if err := validateChannel(app, field, channel); err != nil {
			return err
		}

		key := strings.ToLower(channel.Name)
		if _, duplicate := seen[key]; duplicate {
			return invalid(app, field+".Name", "duplicate channel %q", channel.Name)
		}

		seen[key] = struct{}{}
	}

	if _, _, ok := app.FindChannel(app.Channel.Name); !ok {
		return invalid(app, FieldChannel, "channel %q is not in the channel list", app.Channel.Name)
	}

	return nil
}

func validateChannel(app *SnapApp, field string, channel *SnapChannel) error {
	if err := fieldValidate.Var(channel.Name, "required,channelname"); err != nil {
		return invalid(app, field+".Name", "must be 3-15 letters, digits or hyphens, got %q", channel.Name)
	}

	if strings.TrimSpace(channel.Feed) == "" {
		return invalid(app, field+".Feed", "must reference a feed")
	}

	return nil
}

func validateTarget(app *SnapApp) error {
	target := app.Target
	if target == nil {
		return invalid(app, FieldTarget, "must be set")
	}

	if !target.OS.Supported() {
		return invalid(app, FieldTarget+".Os", "unsupported platform %q", target.OS)
	}

	if strings.TrimSpace(target.Framework) == "" {
		return invalid(app, FieldTarget+".Framework", "must not be empty")
	}

	if strings.TrimSpace(target.Rid) == "" {
		return invalid(app, FieldTarget+".Rid", "must not be empty")
	}

	return nil
}

func validateFeeds(app *SnapApp) error {
	if len(app.Feeds) == 0 {
		return invalid(app, FieldFeeds, "at least one feed is required")
	}

	for i, feed := range app.Feeds {
		field := fmt.Sprintf("%s[%d]", FieldFeeds, i)
		if feed == nil {
			return invalid(app, field, "must not be nil")
		}

		if strings.TrimSpace(feed.Name) == "" {
			return invalid(app, field+".Name", "must not be empty")
		}

		if err := fieldValidate.Var(feed.SourceURI, "required,url"); err != nil {
			return invalid(app, field+".SourceUri", "must be an absolute URI, got %q", feed.SourceURI)
		}

		if !feed.ProtocolVersion.Recognized() {
			return invalid(app, field+".ProtocolVersion", "unsupported protocol version %q", feed.ProtocolVersion)
		}
	}

	return nil
}
