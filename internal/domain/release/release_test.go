package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testIndex() *Index {
	return &Index{Releases: []*Release{
		{AppID: "demoapp", Version: "1.2.0", Rid: "win-x64", Channels: []string{"test", "staging"}, Filename: "a"},
		{AppID: "demoapp", Version: "1.10.0", Rid: "win-x64", Channels: []string{"test"}, Filename: "b"},
		{AppID: "demoapp", Version: "1.9.0", Rid: "linux-x64", Channels: []string{"test"}, Filename: "c"},
		{AppID: "other", Version: "9.0.0", Rid: "win-x64", Channels: []string{"test"}, Filename: "d"},
	}}
}

func TestForSortsBySemanticVersion(t *testing.T) {
	t.Parallel()

	releases := testIndex().For("demoapp", "")
	require.Len(t, releases, 3)
	require.Equal(t, []string{"1.10.0", "1.9.0", "1.2.0"},
		[]string{releases[0].Version, releases[1].Version, releases[2].Version})
}

func TestLatest(t *testing.T) {
	t.Parallel()

	idx := testIndex()

	latest, ok := idx.Latest("demoapp", "win-x64", "test")
	require.True(t, ok)
	require.Equal(t, "1.10.0", latest.Version)

	latest, ok = idx.Latest("demoapp", "win-x64", "staging")
	require.True(t, ok)
	require.Equal(t, "1.2.0", latest.Version)

	_, ok = idx.Latest("demoapp", "win-x64", "production")
	require.False(t, ok)
}

func TestFindAndRemove(t *testing.T) {
	t.Parallel()

	idx := testIndex()

	r, ok := idx.Find("demoapp", "linux-x64", "1.9.0")
	require.True(t, ok)
	require.Equal(t, "c", r.Filename)

	require.True(t, idx.Remove("c"))
	require.False(t, idx.Remove("c"))
	require.Len(t, idx.Releases, 3)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	idx := testIndex()
	clone := idx.Clone()

	clone.Releases[0].Channels[0] = "changed"
	clone.Releases = clone.Releases[:1]

	require.Equal(t, "test", idx.Releases[0].Channels[0])
	require.Len(t, idx.Releases, 4)
}
