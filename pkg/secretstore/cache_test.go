package secretstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTTLCache_Expiry(t *testing.T) {
	t.Parallel()

	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTTLCache[string, string](10*time.Second, clock.now)

	c.put("a", "1", false)
	c.put("b", "2", true)

	clock.advance(9 * time.Second)
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	clock.advance(time.Second)
	_, ok = c.get("a")
	assert.False(t, ok, "entry is invalid once now - inserted reaches the TTL")

	v, ok = c.get("b")
	assert.True(t, ok, "permanent entries never expire")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.len(), "expired entries are dropped on access")
}

func TestTTLCache_ZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	clock := &manualClock{t: time.Unix(0, 0)}
	c := newTTLCache[string, int](0, clock.now)
	c.put("k", 42, false)

	clock.advance(1000 * time.Hour)
	v, ok := c.get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTTLCache_EvictCallback(t *testing.T) {
	t.Parallel()

	clock := &manualClock{t: time.Unix(0, 0)}
	c := newTTLCache[string, string](time.Second, clock.now)
	var evicted []string
	c.onEvict = func(v string) { evicted = append(evicted, v) }

	c.put("k", "first", false)
	c.put("k", "second", false)
	assert.Equal(t, []string{"first"}, evicted, "replacing an entry evicts the old value")

	clock.advance(2 * time.Second)
	_, ok := c.get("k")
	assert.False(t, ok)
	assert.Equal(t, []string{"first", "second"}, evicted)

	c.put("x", "third", true)
	c.clear()
	assert.Equal(t, []string{"first", "second", "third"}, evicted)
	assert.Zero(t, c.len())
}

func TestLatestActive(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		versions []VersionMetadata
		want     string
		found    bool
	}{
		{
			name:  "empty listing",
			found: false,
		},
		{
			name: "only inactive versions",
			versions: []VersionMetadata{
				{Version: "1", State: StateDisabled, CreateTime: t0},
				{Version: "2", State: StateDestroyed, CreateTime: t0.Add(time.Hour)},
				{Version: "3", State: StateUnspecified, CreateTime: t0.Add(2 * time.Hour)},
			},
			found: false,
		},
		{
			name: "newest create time wins regardless of order",
			versions: []VersionMetadata{
				{Version: "3", State: StateEnabled, CreateTime: t0},
				{Version: "1", State: StateEnabled, CreateTime: t0.Add(2 * time.Hour)},
				{Version: "2", State: StateEnabled, CreateTime: t0.Add(time.Hour)},
			},
			want:  "1",
			found: true,
		},
		{
			name: "newer inactive versions are skipped",
			versions: []VersionMetadata{
				{Version: "1", State: StateEnabled, CreateTime: t0},
				{Version: "2", State: StateDestroyed, CreateTime: t0.Add(time.Hour)},
				{Version: "3", State: StateDisabled, CreateTime: t0.Add(2 * time.Hour)},
			},
			want:  "1",
			found: true,
		},
		{
			name: "ties go to the larger version number",
			versions: []VersionMetadata{
				{Version: "10", State: StateEnabled, CreateTime: t0},
				{Version: "9", State: StateEnabled, CreateTime: t0},
			},
			want:  "10",
			found: true,
		},
		{
			name: "non-numeric ties compare lexically",
			versions: []VersionMetadata{
				{Version: "a1b2", State: StateEnabled, CreateTime: t0},
				{Version: "c3d4", State: StateEnabled, CreateTime: t0},
			},
			want:  "c3d4",
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := latestActive(tt.versions)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got.Version)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, compareVersions("10", "9"))
	assert.Equal(t, -1, compareVersions("2", "10"))
	assert.Equal(t, 0, compareVersions("7", "7"))
	assert.Equal(t, 1, compareVersions("b", "a"))
	assert.Equal(t, -1, compareVersions("10", "9a"), "mixed identifiers compare lexically")
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	versions := []VersionMetadata{
		{Version: "1", CreateTime: t0},
		{Version: "3", CreateTime: t0.Add(time.Hour)},
		{Version: "2", CreateTime: t0.Add(time.Hour)},
	}
	sortNewestFirst(versions)

	got := []string{versions[0].Version, versions[1].Version, versions[2].Version}
	assert.Equal(t, []string{"3", "2", "1"}, got)
}

func TestVersionAddress_String(t *testing.T) {
	t.Parallel()

	addr := VersionAddress{Project: "proj", Name: "db", Version: "4"}
	assert.Equal(t, "projects/proj/secrets/db/versions/4", addr.String())
}
