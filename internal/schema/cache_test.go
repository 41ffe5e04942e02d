package schema

import (
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func TestAlbum_InsertAt(t *testing.T) {
	tests := []struct {
		name   string
		photos []string
		idx    uint32
		photo  string
		want   []string
	}{
		{name: "empty", photos: nil, idx: 0, photo: "p0", want: []string{"p0"}},
		{name: "append at len", photos: []string{"p0"}, idx: 1, photo: "p1", want: []string{"p0", "p1"}},
		{name: "backfill in middle", photos: []string{"p0", "p2"}, idx: 1, photo: "p1", want: []string{"p0", "p1", "p2"}},
		{name: "front", photos: []string{"p1"}, idx: 0, photo: "p0", want: []string{"p0", "p1"}},
		{name: "past end clamps", photos: []string{"p0"}, idx: 5, photo: "p5", want: []string{"p0", "p5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Album{Photos: slices.Clone(tt.photos)}
			a.InsertAt(tt.idx, tt.photo)
			if !slices.Equal(a.Photos, tt.want) {
				t.Errorf("Photos = %v, want %v", a.Photos, tt.want)
			}
		})
	}
}

func TestSyncCache_FlattenOrdersByPath(t *testing.T) {
	c := NewSyncCache()
	// Inserted B first: arrival order must not matter.
	c.Albums["/B"] = &Album{Photos: []string{"b0"}, Cursor: 1}
	c.Albums["/A"] = &Album{Photos: []string{"a0", "a1"}, Cursor: 2}

	got := c.Flatten()
	want := []string{"a0", "a1", "b0"}
	if !slices.Equal(got, want) {
		t.Fatalf("Flatten = %v, want %v", got, want)
	}

	// Deterministic and side-effect free.
	again := c.Flatten()
	if !slices.Equal(got, again) {
		t.Fatalf("second Flatten = %v, want %v", again, got)
	}
	if c.Albums["/A"].Cursor != 2 || len(c.Albums["/A"].Photos) != 2 {
		t.Fatal("Flatten mutated the cache")
	}
}

func TestSyncCache_FlattenEmpty(t *testing.T) {
	if got := NewSyncCache().Flatten(); len(got) != 0 {
		t.Fatalf("Flatten of empty cache = %v, want empty", got)
	}
}

func TestSyncCache_SeedAlbumKeepsCursor(t *testing.T) {
	c := NewSyncCache()
	if !c.SeedAlbum("/MYPHOTOS") {
		t.Fatal("first SeedAlbum should add the album")
	}
	c.Albums["/MYPHOTOS"].Cursor = 3

	if c.SeedAlbum("/MYPHOTOS") {
		t.Fatal("second SeedAlbum should be a no-op")
	}
	if c.Albums["/MYPHOTOS"].Cursor != 3 {
		t.Fatalf("cursor = %d, want 3", c.Albums["/MYPHOTOS"].Cursor)
	}
}

func TestSyncCache_JSONRoundTrip(t *testing.T) {
	c := NewSyncCache()
	c.AlbumsIdx = 4
	c.Albums["/A"] = &Album{Photos: []string{"a0"}, Cursor: 1}
	c.Albums["/B/c"] = &Album{Cursor: 7}
	c.LastSync = time.Date(2025, 3, 1, 12, 30, 0, 500, time.UTC)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got SyncCache
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got.Normalize()

	if !c.Equal(&got) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, c)
	}
}

func TestSyncCache_CloneIsDeep(t *testing.T) {
	c := NewSyncCache()
	c.Albums["/A"] = &Album{Photos: []string{"a0"}, Cursor: 1}

	dup := c.Clone()
	dup.Albums["/A"].Photos[0] = "changed"
	dup.Albums["/A"].Cursor = 9

	if c.Albums["/A"].Photos[0] != "a0" || c.Albums["/A"].Cursor != 1 {
		t.Fatal("Clone shares album state with the original")
	}
	if c.Equal(dup) {
		t.Fatal("Equal should report modified clone as different")
	}
}

func TestSyncCache_EqualNilAlbum(t *testing.T) {
	withNil := NewSyncCache()
	withNil.Albums["/A"] = nil

	empty := NewSyncCache()
	empty.SeedAlbum("/A")

	if !withNil.Equal(empty) || !empty.Equal(withNil) {
		t.Fatal("nil album should equal an empty album")
	}

	full := NewSyncCache()
	full.SeedAlbum("/A")
	full.Albums["/A"].InsertAt(0, "p")
	if withNil.Equal(full) || full.Equal(withNil) {
		t.Fatal("nil album should differ from a populated one")
	}
}

func TestSyncCache_NormalizeRepairsNil(t *testing.T) {
	var c SyncCache
	c.Normalize()
	if c.Albums == nil {
		t.Fatal("Normalize left Albums nil")
	}
	if c.LastSync.IsZero() {
		t.Fatal("Normalize left zero watermark")
	}

	c.Albums["/A"] = nil
	c.Normalize()
	if c.Albums["/A"] == nil {
		t.Fatal("Normalize left nil album")
	}
}

func TestSyncCache_Summary(t *testing.T) {
	c := NewSyncCache()
	c.AlbumsIdx = 2
	c.Albums["/B"] = &Album{Photos: []string{"b0"}, Cursor: 1}
	c.Albums["/A"] = &Album{Photos: []string{"a0", "a1"}, Cursor: 3}

	s := c.Summary()
	if s.Photos != 3 || s.AlbumsIdx != 2 {
		t.Fatalf("summary totals = %+v", s)
	}
	want := []AlbumSummary{
		{Path: "/A", Photos: 2, Cursor: 3},
		{Path: "/B", Photos: 1, Cursor: 1},
	}
	if !slices.Equal(s.Albums, want) {
		t.Fatalf("albums = %+v, want %+v", s.Albums, want)
	}
}
