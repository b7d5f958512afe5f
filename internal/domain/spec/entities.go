package spec

import "strings"

// OSPlatform is an operating system a release can target.
type OSPlatform string

// Supported platforms.
const (
	OSPlatformWindows OSPlatform = "windows"
	OSPlatformLinux   OSPlatform = "linux"
)

// ParseOSPlatform maps a name (or a rid prefix such as "win10-x64") to a platform.
func ParseOSPlatform(s string) (OSPlatform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(s, "win"):
		return OSPlatformWindows, true
	case strings.HasPrefix(s, "linux"):
		return OSPlatformLinux, true
	default:
		return OSPlatform(s), false
	}
}

// Supported reports whether the platform is one snapx can install on.
func (p OSPlatform) Supported() bool {
	return p == OSPlatformWindows || p == OSPlatformLinux
}

// ProtocolVersion is the feed protocol.
type ProtocolVersion string

// Known protocol versions.
const (
	ProtocolVersionNotSupported ProtocolVersion = "NotSupported"
	ProtocolVersionNugetV2      ProtocolVersion = "NugetV2"
	ProtocolVersionNugetV3      ProtocolVersion = "NugetV3"
)

// Recognized reports whether the protocol version is usable.
func (v ProtocolVersion) Recognized() bool {
	return v == ProtocolVersionNugetV2 || v == ProtocolVersionNugetV3
}

// SnapChannel is a named release track.
type SnapChannel struct {
	// Name is 3-15 letters, digits or hyphens, compared case-insensitively.
	Name string `yaml:"name"`
	// Feed is the name of the feed releases in this channel are pushed to.
	Feed string `yaml:"feed"`
	// Update is the optional hook run when a client updates from this channel.
	Update string `yaml:"update,omitempty"`
	// Publish is the optional hook run when a release is published to this channel.
	Publish string `yaml:"publish,omitempty"`
}

// Clone returns a copy of the channel.
func (c *SnapChannel) Clone() *SnapChannel {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// SnapFeed is a named package source.
type SnapFeed struct {
	Name            string          `yaml:"name"`
	SourceURI       string          `yaml:"source"`
	Username        string          `yaml:"username,omitempty"`
	Password        string          `yaml:"password,omitempty"`
	APIKey          string          `yaml:"api_key,omitempty"`
	ProtocolVersion ProtocolVersion `yaml:"protocol_version"`
}

// Clone returns a copy of the feed.
func (f *SnapFeed) Clone() *SnapFeed {
	if f == nil {
		return nil
	}

	cloned := *f

	return &cloned
}

// HasCredentials reports whether any of username, password or api key is set.
func (f *SnapFeed) HasCredentials() bool {
	return f.Username != "" || f.Password != "" || f.APIKey != ""
}

// IsFolder reports whether the feed is a local directory (file:// source).
func (f *SnapFeed) IsFolder() bool {
	return strings.HasPrefix(strings.ToLower(f.SourceURI), "file:")
}

// SnapTarget is the platform, framework and runtime a release is built for.
type SnapTarget struct {
	// OS is the operating system.
	OS OSPlatform `yaml:"os"`
	// Framework is the target framework moniker, e.g. "netcoreapp2.2".
	Framework string `yaml:"framework"`
	// Rid is the runtime identifier, e.g. "win10-x64".
	Rid string `yaml:"rid"`
}

// Clone returns a copy of the target.
func (t *SnapTarget) Clone() *SnapTarget {
	if t == nil {
		return nil
	}

	cloned := *t

	return &cloned
}

// SnapSignature describes the certificate used to sign release binaries.
type SnapSignature struct {
	CertificateSubjectName string `yaml:"certificate_subject_name"`
	Sha1                   string `yaml:"sha1,omitempty"`
	Sha256                 string `yaml:"sha256,omitempty"`
}

// Clone returns a copy of the signature.
func (s *SnapSignature) Clone() *SnapSignature {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
