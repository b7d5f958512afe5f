package spec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func validApp() *SnapApp {
	test := &SnapChannel{Name: "test", Feed: "myfeedname"}

	return &SnapApp{
		ID:      "demoapp",
		Version: "1.2.3",
		Channel: test.Clone(),
		Channels: []*SnapChannel{
			test,
			{Name: "staging", Feed: "myfeedname", Update: "notify"},
		},
		Target: &SnapTarget{
			OS:        OSPlatformWindows,
			Framework: "netcoreapp2.2",
			Rid:       "win10-x64",
		},
		Feeds: []*SnapFeed{
			{
				Name:            "myfeedname",
				SourceURI:       "https://nuget.example.com/v3/index.json",
				Username:        "myusername",
				Password:        "mypassword",
				ProtocolVersion: ProtocolVersionNugetV3,
			},
		},
	}
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()

	var validationErr *ValidationError

	require.True(t, errors.As(err, &validationErr), "expected *ValidationError, got %v", err)
	require.Equal(t, field, validationErr.Field)
	require.Contains(t, err.Error(), field)
}

// TestValidate_Valid accepts a fully formed app.
func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(validApp()))
}

// TestValidate_FieldErrors walks the violations in the documented order.
func TestValidate_FieldErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*SnapApp)
		field  string
	}{
		"missing id": {
			mutate: func(a *SnapApp) { a.ID = "" },
			field:  FieldID,
		},
		"prerelease": {
			mutate: func(a *SnapApp) { a.Version = "1.0.0-beta" },
			field:  FieldVersion,
		},
		"release label": {
			mutate: func(a *SnapApp) { a.Version = "1.0.0+build.5" },
			field:  FieldVersion,
		},
		"short version": {
			mutate: func(a *SnapApp) { a.Version = "1.0" },
			field:  FieldVersion,
		},
		"both digests": {
			mutate: func(a *SnapApp) {
				a.Signature = &SnapSignature{
					CertificateSubjectName: "CN=Demo",
					Sha1:                   "0123456789abcdef0123456789abcdef01234567",
					Sha256:                 "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
				}
			},
			field: FieldSignatureDigest,
		},
		"no digest": {
			mutate: func(a *SnapApp) {
				a.Signature = &SnapSignature{CertificateSubjectName: "CN=Demo"}
			},
			field: FieldSignatureDigest,
		},
		"no subject": {
			mutate: func(a *SnapApp) {
				a.Signature = &SnapSignature{Sha1: "0123456789abcdef0123456789abcdef01234567"}
			},
			field: "Signature.CertificateSubjectName",
		},
		"missing current channel": {
			mutate: func(a *SnapApp) { a.Channel = nil },
			field:  FieldChannel,
		},
		"short channel name": {
			mutate: func(a *SnapApp) { a.Channels[1].Name = "ab" },
			field:  "Channels[1].Name",
		},
		"bad channel charset": {
			mutate: func(a *SnapApp) { a.Channels[1].Name = "stag_ing" },
			field:  "Channels[1].Name",
		},
		"duplicate channel": {
			mutate: func(a *SnapApp) { a.Channels[1].Name = "TEST" },
			field:  "Channels[1].Name",
		},
		"channel without feed": {
			mutate: func(a *SnapApp) { a.Channels[0].Feed = "" },
			field:  "Channels[0].Feed",
		},
		"unknown current channel": {
			mutate: func(a *SnapApp) { a.Channel.Name = "production" },
			field:  FieldChannel,
		},
		"no target": {
			mutate: func(a *SnapApp) { a.Target = nil },
			field:  FieldTarget,
		},
		"unsupported os": {
			mutate: func(a *SnapApp) { a.Target.OS = "plan9" },
			field:  "Target.Os",
		},
		"missing rid": {
			mutate: func(a *SnapApp) { a.Target.Rid = "" },
			field:  "Target.Rid",
		},
		"relative feed source": {
			mutate: func(a *SnapApp) { a.Feeds[0].SourceURI = "feeds/local" },
			field:  "Feeds[0].SourceUri",
		},
		"unsupported protocol": {
			mutate: func(a *SnapApp) { a.Feeds[0].ProtocolVersion = ProtocolVersionNotSupported },
			field:  "Feeds[0].ProtocolVersion",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := validApp()
			tc.mutate(app)

			requireFieldError(t, Validate(app), tc.field)
		})
	}
}

// TestValidate_Order reports identity problems before later entities.
func TestValidate_Order(t *testing.T) {
	t.Parallel()

	app := validApp()
	app.ID = ""
	app.Target = nil
	app.Feeds = nil

	requireFieldError(t, Validate(app), FieldID)
}

// TestClone_DeepCopy mutates the clone and checks the original is untouched.
func TestClone_DeepCopy(t *testing.T) {
	t.Parallel()

	original := validApp()
	original.Signature = &SnapSignature{CertificateSubjectName: "CN=Demo", Sha1: "0123456789abcdef0123456789abcdef01234567"}

	cloned := original.Clone()
	require.Equal(t, original, cloned)
	require.NotSame(t, original.Channel, cloned.Channel)
	require.NotSame(t, original.Target, cloned.Target)
	require.NotSame(t, original.Signature, cloned.Signature)

	cloned.Channels[0].Name = "mutated"
	cloned.Channels = append(cloned.Channels, &SnapChannel{Name: "production", Feed: "myfeedname"})
	cloned.Feeds[0].Password = "changed"
	cloned.Target.Rid = "linux-x64"
	cloned.Signature.Sha1 = ""

	require.Equal(t, "test", original.Channels[0].Name)
	require.Len(t, original.Channels, 2)
	require.Equal(t, "mypassword", original.Feeds[0].Password)
	require.Equal(t, "win10-x64", original.Target.Rid)
	require.NotEmpty(t, original.Signature.Sha1)

	require.Nil(t, (*SnapApp)(nil).Clone())
}

// TestSnapApp_Lookups covers channel and feed helpers.
func TestSnapApp_Lookups(t *testing.T) {
	t.Parallel()

	app := validApp()

	next, ok := app.NextChannel("TEST")
	require.True(t, ok)
	require.Equal(t, "staging", next.Name)

	_, ok = app.NextChannel("staging")
	require.False(t, ok)

	feed, ok := app.FindFeed("MyFeedName")
	require.True(t, ok)
	require.True(t, feed.HasCredentials())
	require.False(t, feed.IsFolder())
	require.False(t, (&SnapFeed{Name: "anon"}).HasCredentials())
	require.True(t, (&SnapFeed{APIKey: "k"}).HasCredentials())

	require.Equal(t, "demoapp_1.2.3_win10-x64_snapx.nupkg", app.PackageFilename())
}

// TestParseOSPlatform maps names and rid prefixes.
func TestParseOSPlatform(t *testing.T) {
	t.Parallel()

	os, ok := ParseOSPlatform("win10-x64")
	require.True(t, ok)
	require.Equal(t, OSPlatformWindows, os)

	os, ok = ParseOSPlatform("linux-arm64")
	require.True(t, ok)
	require.Equal(t, OSPlatformLinux, os)

	_, ok = ParseOSPlatform("osx-x64")
	require.False(t, ok)
}
