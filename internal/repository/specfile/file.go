package specfile

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/snapx/internal/domain/spec"
)

// DefaultFilename is the spec document looked up when no path is given.
const DefaultFilename = "snapx.yaml"

// Feed types accepted in the document.
const (
	FeedTypeNuget   = "nuget"
	FeedTypeNugetV2 = "nugetv2"
	FeedTypeFolder  = "folder"
)

var (
	errAppNotFound       = errors.New("app not found")
	errNoConfiguration   = errors.New("no configuration for runtime identifier")
	errFeedNotFound      = errors.New("feed not found")
	errUnknownFeedType   = errors.New("unknown feed type")
	errMissingName       = errors.New("name is required")
	errFrameworkMismatch = errors.New("channels disagree on target framework")
)

// File is the parsed spec document.
type File struct {
	// Feeds lists package sources in document order.
	Feeds []*Feed `yaml:"feeds"`
	// Apps lists applications in document order.
	Apps []*App `yaml:"apps"`
	// Snaps is an accepted alias of Apps; Parse merges it into Apps.
	Snaps []*App `yaml:"snaps,omitempty"`

	// baseDir resolves relative folder feed sources.
	baseDir string
}

// Feed is one entry of the feeds list.
type Feed struct {
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	Source   string  `yaml:"source"`
	Username *string `yaml:"username,omitempty"`
	Password *string `yaml:"password,omitempty"`
	APIKey   *string `yaml:"api_key,omitempty"`
}

// App is one entry of the apps list.
type App struct {
	Name      string              `yaml:"name"`
	Nuspec    string              `yaml:"nuspec"`
	Version   string              `yaml:"version"`
	Channel   string              `yaml:"channel,omitempty"`
	Signature *spec.SnapSignature `yaml:"signature,omitempty"`
	Channels  []*Channel          `yaml:"channels"`
}

// Channel is one release track of an app.
type Channel struct {
	Name           string           `yaml:"name"`
	Update         string           `yaml:"update,omitempty"`
	Publish        string           `yaml:"publish,omitempty"`
	Configurations []*Configuration `yaml:"configurations"`
}

// Configuration binds a runtime identifier and framework to a feed.
type Configuration struct {
	Rid       string `yaml:"rid"`
	Framework string `yaml:"framework"`
	Feed      string `yaml:"feed"`
}

// Load reads and parses the document at path.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}

	file, err := Parse(contents)
	if err != nil {
		return nil, err
	}

	absolute, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve spec directory: %w", err)
	}

	file.baseDir = absolute

	return file, nil
}

// Parse decodes a spec document, keeping list order.
func Parse(contents []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("unmarshal spec file: %w", err)
	}

	file.Apps = append(file.Apps, file.Snaps...)
	file.Snaps = nil

	for i, feed := range file.Feeds {
		if feed == nil || strings.TrimSpace(feed.Name) == "" {
			return nil, fmt.Errorf("feeds[%d]: %w", i, errMissingName)
		}
	}

	for i, app := range file.Apps {
		if app == nil || strings.TrimSpace(app.Name) == "" {
			return nil, fmt.Errorf("apps[%d]: %w", i, errMissingName)
		}

		for j, channel := range app.Channels {
			if channel == nil || strings.TrimSpace(channel.Name) == "" {
				return nil, fmt.Errorf("app %s: channels[%d]: %w", app.Name, j, errMissingName)
			}
		}
	}

	return &file, nil
}

// FindApp looks an app up by name, case-insensitively.
func (f *File) FindApp(name string) (*App, bool) {
	for _, app := range f.Apps {
		if strings.EqualFold(app.Name, name) {
			return app, true
		}
	}

	return nil, false
}

// FindFeed looks a feed up by name, case-insensitively.
func (f *File) FindFeed(name string) (*Feed, bool) {
	for _, feed := range f.Feeds {
		if strings.EqualFold(feed.Name, name) {
			return feed, true
		}
	}

	return nil, false
}

// BuildApp resolves and validates the SnapApp of appName for the runtime identifier rid.
// Errors carry the app's identity.
func (f *File) BuildApp(appName, rid string) (*spec.SnapApp, error) {
	app, ok := f.FindApp(appName)
	if !ok {
		return nil, fmt.Errorf("%s: %w", appName, errAppNotFound)
	}

	result := &spec.SnapApp{
		ID:        app.Name,
		Version:   app.Version,
		Signature: app.Signature.Clone(),
	}

	var (
		framework string
		feedNames = make(map[string]struct{}, len(f.Feeds))
	)

	for _, channel := range app.Channels {
		configuration, found := channel.configurationFor(rid)
		if !found {
			return nil, fmt.Errorf("app %s: channel %s: %w %q", app.Name, channel.Name, errNoConfiguration, rid)
		}

		if framework != "" && !strings.EqualFold(framework, configuration.Framework) {
			return nil, fmt.Errorf("app %s: channel %s: %w", app.Name, channel.Name, errFrameworkMismatch)
		}

		framework = configuration.Framework

		result.Channels = append(result.Channels, &spec.SnapChannel{
			Name:    channel.Name,
			Feed:    configuration.Feed,
			Update:  channel.Update,
			Publish: channel.Publish,
		})

		key := strings.ToLower(configuration.Feed)
		if _, seen := feedNames[key]; seen {
			continue
		}

		feedNames[key] = struct{}{}

		feed, err := f.buildFeed(app.Name, configuration.Feed)
		if err != nil {
			return nil, err
		}

		result.Feeds = append(result.Feeds, feed)
	}

	result.Channel = currentChannel(app, result)

	platform, _ := spec.ParseOSPlatform(rid)
	result.Target = &spec.SnapTarget{
		OS:        platform,
		Framework: framework,
		Rid:       rid,
	}

	if err := spec.Validate(result); err != nil {
		return nil, err
	}

	return result, nil
}

func currentChannel(app *App, result *spec.SnapApp) *spec.SnapChannel {
	if app.Channel != "" {
		if channel, _, ok := result.FindChannel(app.Channel); ok {
			return channel.Clone()
		}

		return &spec.SnapChannel{Name: app.Channel}
	}

	if len(result.Channels) == 0 {
		return nil
	}

	return result.Channels[0].Clone()
}

func (c *Channel) configurationFor(rid string) (*Configuration, bool) {
	for _, configuration := range c.Configurations {
		if configuration != nil && strings.EqualFold(configuration.Rid, rid) {
			return configuration, true
		}
	}

	return nil, false
}

func (f *File) buildFeed(appName, name string) (*spec.SnapFeed, error) {
	feed, ok := f.FindFeed(name)
	if !ok {
		return nil, fmt.Errorf("app %s: %s: %w", appName, name, errFeedNotFound)
	}

	result := &spec.SnapFeed{
		Name:      feed.Name,
		SourceURI: feed.Source,
		Username:  deref(feed.Username),
		Password:  deref(feed.Password),
		APIKey:    deref(feed.APIKey),
	}

	switch strings.ToLower(feed.Type) {
	case FeedTypeNuget, "":
		result.ProtocolVersion = spec.ProtocolVersionNugetV3
	case FeedTypeNugetV2:
		result.ProtocolVersion = spec.ProtocolVersionNugetV2
	case FeedTypeFolder:
		result.ProtocolVersion = spec.ProtocolVersionNugetV3
		result.SourceURI = f.folderURI(feed.Source)
	default:
		return nil, fmt.Errorf("app %s: feed %s: %w %q", appName, feed.Name, errUnknownFeedType, feed.Type)
	}

	return result, nil
}

// folderURI turns a folder feed source into an absolute file:// URI.
func (f *File) folderURI(source string) string {
	if strings.HasPrefix(strings.ToLower(source), "file:") {
		return source
	}

	path := source
	if !filepath.IsAbs(path) && f.baseDir != "" {
		path = filepath.Join(f.baseDir, path)
	}

	if absolute, err := filepath.Abs(path); err == nil {
		path = absolute
	}

	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return (&url.URL{Scheme: "file", Path: path}).String()
}

// FolderPath converts a file:// feed source back into a local path.
func FolderPath(sourceURI string) (string, error) {
	parsed, err := url.Parse(sourceURI)
	if err != nil {
		return "", fmt.Errorf("parse feed source: %w", err)
	}

	path := parsed.Path
	// file:///C:/releases on Windows.
	if len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
