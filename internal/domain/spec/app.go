package spec

import (
	"fmt"
	"strings"
)

// SnapApp is the release specification of one application for one target.
type SnapApp struct {
	// ID is the package and application identity.
	ID string `yaml:"id"`
	// Version is a stable semantic version (no prerelease, no build label).
	Version string `yaml:"version"`
	// Signature is the optional code-signing descriptor.
	Signature *SnapSignature `yaml:"signature,omitempty"`
	// Channel is the current channel.
	Channel *SnapChannel `yaml:"channel"`
	// Channels lists every channel in promotion order.
	Channels []*SnapChannel `yaml:"channels"`
	// Target is the platform the release is built for.
	Target *SnapTarget `yaml:"target"`
	// Feeds are the package sources the channels refer to.
	Feeds []*SnapFeed `yaml:"feeds"`
}

// Clone returns a deep copy of the app.
func (a *SnapApp) Clone() *SnapApp {
	if a == nil {
		return nil
	}

	cloned := &SnapApp{
		ID:        a.ID,
		Version:   a.Version,
		Signature: a.Signature.Clone(),
		Channel:   a.Channel.Clone(),
		Target:    a.Target.Clone(),
	}

	if a.Channels != nil {
		cloned.Channels = make([]*SnapChannel, len(a.Channels))
		for i, channel := range a.Channels {
			cloned.Channels[i] = channel.Clone()
		}
	}

	if a.Feeds != nil {
		cloned.Feeds = make([]*SnapFeed, len(a.Feeds))
		for i, feed := range a.Feeds {
			cloned.Feeds[i] = feed.Clone()
		}
	}

	return cloned
}

// FindChannel looks a channel up by name, case-insensitively.
func (a *SnapApp) FindChannel(name string) (*SnapChannel, int, bool) {
	for i, channel := range a.Channels {
		if channel != nil && strings.EqualFold(channel.Name, name) {
			return channel, i, true
		}
	}

	return nil, -1, false
}

// NextChannel returns the channel that follows name in promotion order.
func (a *SnapApp) NextChannel(name string) (*SnapChannel, bool) {
	_, i, ok := a.FindChannel(name)
	if !ok || i+1 >= len(a.Channels) {
		return nil, false
	}

	return a.Channels[i+1], true
}

// FindFeed looks a feed up by name, case-insensitively.
func (a *SnapApp) FindFeed(name string) (*SnapFeed, bool) {
	for _, feed := range a.Feeds {
		if feed != nil && strings.EqualFold(feed.Name, name) {
			return feed, true
		}
	}

	return nil, false
}

// PackageFilename is the canonical file name of the app's full package.
func (a *SnapApp) PackageFilename() string {
	rid := ""
	if a.Target != nil {
		rid = a.Target.Rid
	}

	return strings.ToLower(fmt.Sprintf("%s_%s_%s_snapx.nupkg", a.ID, a.Version, rid))
}
