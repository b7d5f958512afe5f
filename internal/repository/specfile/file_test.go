package specfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/domain/spec"
)

const document = `
feeds:
  - name: myfeedname
    type: nuget
    source: https://nuget.example.com/v3/index.json
    username: myusername
    password: mypassword
  - name: myfeedname2
    type: nuget
    source: https://nuget.example.com/v3/index.json

apps:
  - name: demoapp
    nuspec: demoapp.nuspec
    version: 1.0.0
    channels:
      - name: test
        configurations:
          - rid: win10-x64
            framework: netcoreapp2.2
            feed: myfeedname
      - name: staging
        configurations:
          - rid: win10-x64
            framework: netcoreapp2.2
            feed: myfeedname
  - name: demoapp2
    nuspec: demoapp2.nuspec
    version: 2.0.0
    channels:
      - name: test
        configurations:
          - rid: win10-x64
            framework: netcoreapp2.2
            feed: myfeedname
      - name: staging
        configurations:
          - rid: win10-x64
            framework: netcoreapp2.2
            feed: myfeedname
`

// TestParse_Document checks feeds, apps and nested configurations keep their values and order.
func TestParse_Document(t *testing.T) {
	t.Parallel()

	file, err := Parse([]byte(document))
	require.NoError(t, err)

	require.Len(t, file.Feeds, 2)
	require.Len(t, file.Apps, 2)

	feed1, feed2 := file.Feeds[0], file.Feeds[1]
	require.Equal(t, "myfeedname", feed1.Name)
	require.NotNil(t, feed1.Username)
	require.NotNil(t, feed1.Password)
	require.Equal(t, "myusername", *feed1.Username)
	require.Equal(t, "mypassword", *feed1.Password)

	require.Equal(t, "myfeedname2", feed2.Name)
	require.Nil(t, feed2.Username)
	require.Nil(t, feed2.Password)

	app1 := file.Apps[0]
	require.Equal(t, "demoapp", app1.Name)
	require.Equal(t, "demoapp2", file.Apps[1].Name)
	require.Len(t, app1.Channels, 2)
	require.Equal(t, "test", app1.Channels[0].Name)
	require.Equal(t, "staging", app1.Channels[1].Name)

	testChannel := app1.Channels[0]
	require.Len(t, testChannel.Configurations, 1)
	require.Equal(t, "win10-x64", testChannel.Configurations[0].Rid)
	require.Equal(t, "netcoreapp2.2", testChannel.Configurations[0].Framework)
	require.Equal(t, "myfeedname", testChannel.Configurations[0].Feed)
}

// TestParse_SnapsAlias accepts the snaps key as the app list.
func TestParse_SnapsAlias(t *testing.T) {
	t.Parallel()

	file, err := Parse([]byte("snaps:\n  - name: a\n    version: 1.0.0\n"))
	require.NoError(t, err)
	require.Len(t, file.Apps, 1)
	require.Equal(t, "a", file.Apps[0].Name)
}

// TestParse_Errors reports entries without names and malformed YAML.
func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("apps:\n  - version: 1.0.0\n"))
	require.ErrorIs(t, err, errMissingName)

	_, err = Parse([]byte("apps: [\n"))
	require.Error(t, err)
}

// TestBuildApp resolves a validated SnapApp for one rid.
func TestBuildApp(t *testing.T) {
	t.Parallel()

	file, err := Parse([]byte(document))
	require.NoError(t, err)

	app, err := file.BuildApp("DemoApp", "win10-x64")
	require.NoError(t, err)

	require.Equal(t, "demoapp", app.ID)
	require.Equal(t, "1.0.0", app.Version)
	require.Equal(t, "test", app.Channel.Name)
	require.Len(t, app.Channels, 2)
	require.Len(t, app.Feeds, 1)
	require.Equal(t, spec.OSPlatformWindows, app.Target.OS)
	require.Equal(t, "netcoreapp2.2", app.Target.Framework)
	require.True(t, app.Feeds[0].HasCredentials())
	require.Equal(t, spec.ProtocolVersionNugetV3, app.Feeds[0].ProtocolVersion)

	_, err = file.BuildApp("demoapp", "linux-x64")
	require.ErrorIs(t, err, errNoConfiguration)

	_, err = file.BuildApp("missing", "win10-x64")
	require.ErrorIs(t, err, errAppNotFound)
}

// TestBuildApp_ValidationCarriesApp surfaces spec errors with the owning app attached.
func TestBuildApp_ValidationCarriesApp(t *testing.T) {
	t.Parallel()

	file, err := Parse([]byte(`
feeds:
  - name: local
    type: folder
    source: /tmp/releases
apps:
  - name: brokenapp
    version: 1.0.0-beta
    channels:
      - name: test
        configurations:
          - rid: linux-x64
            framework: net8.0
            feed: local
`))
	require.NoError(t, err)

	_, err = file.BuildApp("brokenapp", "linux-x64")

	var validationErr *spec.ValidationError

	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "brokenapp", validationErr.App)
	require.Equal(t, spec.FieldVersion, validationErr.Field)
}

// TestLoad_FolderFeed resolves a relative folder source against the document directory.
func TestLoad_FolderFeed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)

	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  - name: local
    type: folder
    source: releases
apps:
  - name: folderapp
    version: 3.1.0
    channels:
      - name: test
        configurations:
          - rid: linux-x64
            framework: net8.0
            feed: local
`), 0o600))

	file, err := Load(path)
	require.NoError(t, err)

	app, err := file.BuildApp("folderapp", "linux-x64")
	require.NoError(t, err)
	require.True(t, app.Feeds[0].IsFolder())

	folder, err := FolderPath(app.Feeds[0].SourceURI)
	require.NoError(t, err)

	expected, err := filepath.Abs(filepath.Join(dir, "releases"))
	require.NoError(t, err)
	require.Equal(t, expected, folder)
}
