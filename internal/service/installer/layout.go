package installer

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// VersionDirPrefix prefixes every installed version directory.
	VersionDirPrefix = "app-"
	// stagingDirPrefix prefixes in-progress extraction directories.
	stagingDirPrefix = ".staging-" + VersionDirPrefix
	// replacedDirPrefix prefixes a version directory being reinstalled.
	replacedDirPrefix = ".replaced-" + VersionDirPrefix
	// CurrentPointerFilename names the file holding the active version directory.
	CurrentPointerFilename = ".snapx-current"
	// markerFilename marks an install in progress.
	markerFilename = ".snapx-installing"
	// pointerFileMode is used for the pointer file.
	pointerFileMode os.FileMode = 0o644
)

// VersionDir returns the directory a version is installed to.
func VersionDir(root, version string) string {
	return filepath.Join(root, VersionDirPrefix+version)
}

func stagingDir(root, version string) string {
	return filepath.Join(root, stagingDirPrefix+version)
}

func replacedDir(root, version string) string {
	return filepath.Join(root, replacedDirPrefix+version)
}

// CurrentVersion returns the active version recorded under root, or "" if none.
func CurrentVersion(root string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(root, CurrentPointerFilename))
	if os.IsNotExist(err) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	dir := strings.TrimSpace(string(contents))

	return strings.TrimPrefix(dir, VersionDirPrefix), nil
}

// versionDirs lists installed version directories under root.
func versionDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), VersionDirPrefix) {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}

	return dirs, nil
}
