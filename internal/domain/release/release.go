package release

import (
	"slices"
	"sort"
	"time"

	"golang.org/x/mod/semver"
)

// Release is one published package.
type Release struct {
	// AppID is the application id.
	AppID string `yaml:"id"`
	// Version is the semantic version without a "v" prefix.
	Version string `yaml:"version"`
	// Rid is the runtime identifier the package targets.
	Rid string `yaml:"rid"`
	// Channels lists the channels the release is published to, in promotion order.
	Channels []string `yaml:"channels"`
	// Filename is the package file name inside the feed folder.
	Filename string `yaml:"filename"`
	// Sha512 is the base64 encoded SHA-512 of the package file.
	Sha512 string `yaml:"sha512"`
	// Size is the package size in bytes.
	Size int64 `yaml:"size"`
	// CreatedAt is when the release was packed.
	CreatedAt time.Time `yaml:"created_at"`
}

// Clone returns a deep copy of r.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Channels = slices.Clone(r.Channels)

	return &clone
}

// HasChannel reports whether r is published to channel.
func (r *Release) HasChannel(channel string) bool {
	return slices.Contains(r.Channels, channel)
}

// Index is the release list of a feed folder.
type Index struct {
	// Releases are kept in insertion order.
	Releases []*Release `yaml:"releases"`
}

// Clone returns a deep copy of idx.
func (idx *Index) Clone() *Index {
	if idx == nil {
		return nil
	}

	clone := &Index{Releases: make([]*Release, 0, len(idx.Releases))}
	for _, r := range idx.Releases {
		clone.Releases = append(clone.Releases, r.Clone())
	}

	return clone
}

// Find returns the release of appID, rid and version.
func (idx *Index) Find(appID, rid, version string) (*Release, bool) {
	for _, r := range idx.Releases {
		if r.AppID == appID && r.Rid == rid && r.Version == version {
			return r, true
		}
	}

	return nil, false
}

// For returns the releases of appID and rid, newest version first.
// An empty rid matches every runtime.
func (idx *Index) For(appID, rid string) []*Release {
	var result []*Release

	for _, r := range idx.Releases {
		if r.AppID == appID && (rid == "" || r.Rid == rid) {
			result = append(result, r)
		}
	}

	SortNewestFirst(result)

	return result
}

// Latest returns the newest release of appID and rid published to channel.
func (idx *Index) Latest(appID, rid, channel string) (*Release, bool) {
	for _, r := range idx.For(appID, rid) {
		if r.HasChannel(channel) {
			return r, true
		}
	}

	return nil, false
}

// Remove deletes the release with filename and reports whether it existed.
func (idx *Index) Remove(filename string) bool {
	for i, r := range idx.Releases {
		if r.Filename == filename {
			idx.Releases = slices.Delete(idx.Releases, i, i+1)

			return true
		}
	}

	return false
}

// SortNewestFirst orders releases by descending semantic version, then by rid.
func SortNewestFirst(releases []*Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		if cmp := semver.Compare("v"+releases[i].Version, "v"+releases[j].Version); cmp != 0 {
			return cmp > 0
		}

		return releases[i].Rid < releases[j].Rid
	})
}
