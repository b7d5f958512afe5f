package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/service/installer"
	"github.com/oshokin/snapx/internal/service/packager"
	"github.com/oshokin/snapx/internal/service/release"
)

const releaseSpec = `
feeds:
  - name: staging
    type: folder
    source: ./staging
  - name: public
    type: folder
    source: ./public
apps:
  - name: demoapp
    version: 1.4.0
    channels:
      - name: test
        configurations:
          - rid: linux-x64
            framework: net8.0
            feed: staging
      - name: production
        configurations:
          - rid: linux-x64
            framework: net8.0
            feed: public
`

// TestRelease_PackPromoteInstall drives the release verbs against a live lock service.
func TestRelease_PackPromoteInstall(t *testing.T) {
	t.Parallel()

	httpURL, _, stop := startLockd(t, "")
	defer stop()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		LockServer:    httpURL,
		LockTransport: config.TransportHTTP,
	}))

	specPath := filepath.Join(dir, "snapx.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte(releaseSpec), 0o600))

	input := filepath.Join(dir, "publish")
	require.NoError(t, os.MkdirAll(filepath.Join(input, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "data", "settings.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(input, "readme.txt"), []byte("demo"), 0o600))

	ctx := context.Background()

	require.NoError(t, packager.Run(ctx, &packager.Options{
		ConfigPath: cfgPath,
		SpecPath:   specPath,
		AppName:    "demoapp",
		Rid:        "linux-x64",
		InputDir:   input,
	}))

	releaseOptions := &release.Options{
		ConfigPath: cfgPath,
		SpecPath:   specPath,
		AppName:    "demoapp",
		Rid:        "linux-x64",
		Channel:    "test",
	}

	require.NoError(t, release.RunPromote(ctx, releaseOptions))

	packagePath := filepath.Join(dir, "public", "demoapp_1.4.0_linux-x64_snapx.nupkg")
	require.FileExists(t, packagePath)

	var listing strings.Builder

	releaseOptions.Output = &listing
	require.NoError(t, release.RunList(ctx, releaseOptions))
	require.Contains(t, listing.String(), "test,production")

	root := filepath.Join(dir, "apps", "demoapp")
	require.NoError(t, installer.Run(ctx, &installer.CommandOptions{
		ConfigPath:  cfgPath,
		PackagePath: packagePath,
		RootDir:     root,
	}))

	current, err := installer.CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "1.4.0", current)
	require.FileExists(t, filepath.Join(root, "app-1.4.0", "data", "settings.json"))

	require.NoError(t, release.RunGC(ctx, releaseOptions))
	require.FileExists(t, filepath.Join(dir, "staging", "demoapp_1.4.0_linux-x64_snapx.nupkg"))
}
