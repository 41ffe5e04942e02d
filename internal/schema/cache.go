package schema

import (
	"slices"
	"time"
)

// Album is the locally cached view of one album in the record store.
type Album struct {
	// Photos holds decoded photo identifiers in record-store order.
	Photos []string `json:"photos"`

	// Cursor is the index of the next unread record under the album.
	Cursor uint32 `json:"cursor"`
}

// InsertAt places photo at position idx, shifting later photos right.
// Indexes past the end append, which happens once earlier records at lower
// cursors were dropped.
func (a *Album) InsertAt(idx uint32, photo string) {
	i := int(idx)
	if i >= len(a.Photos) {
		a.Photos = append(a.Photos, photo)
		return
	}
	a.Photos = slices.Insert(a.Photos, i, photo)
}

// SyncCache is the durable state of the discovery service.
type SyncCache struct {
	// AlbumsIdx is the cursor for album-level discovery under the albums root.
	AlbumsIdx uint32 `json:"albums_idx"`

	// Albums maps every known album to its photos and read cursor.
	Albums map[RecordPath]*Album `json:"albums"`

	// LastSync is refreshed on every completed poll cycle.
	LastSync time.Time `json:"last_sync"`
}

// NewSyncCache returns an empty cache with a zero (Unix epoch) watermark.
func NewSyncCache() *SyncCache {
	return &SyncCache{
		Albums:   make(map[RecordPath]*Album),
		LastSync: time.Unix(0, 0).UTC(),
	}
}

// Normalize repairs a cache decoded from storage: nil maps and nil album
// entries are replaced with empty values.
func (c *SyncCache) Normalize() {
	if c.Albums == nil {
		c.Albums = make(map[RecordPath]*Album)
	}
	for path, album := range c.Albums {
		if album == nil {
			c.Albums[path] = &Album{}
		}
	}
	if c.LastSync.IsZero() {
		c.LastSync = time.Unix(0, 0).UTC()
	}
}

// SeedAlbum registers path with cursor zero. An existing album is left
// untouched so that seeding never rewinds a cursor. It reports whether the
// album was added.
func (c *SyncCache) SeedAlbum(path RecordPath) bool {
	c.Normalize()
	if _, ok := c.Albums[path]; ok {
		return false
	}
	c.Albums[path] = &Album{}
	return true
}

// Album returns the album stored at path.
func (c *SyncCache) Album(path RecordPath) (*Album, bool) {
	album, ok := c.Albums[path]
	return album, ok
}

// AlbumPaths returns all album paths in record-store order.
func (c *SyncCache) AlbumPaths() []RecordPath {
	paths := make([]RecordPath, 0, len(c.Albums))
	for path := range c.Albums {
		paths = append(paths, path)
	}
	slices.SortFunc(paths, Compare)
	return paths
}

// Flatten concatenates every album's photos in album path order.
// It does not modify the cache.
func (c *SyncCache) Flatten() []string {
	out := make([]string, 0, c.PhotoCount())
	for _, path := range c.AlbumPaths() {
		out = append(out, c.Albums[path].Photos...)
	}
	return out
}

// PhotoCount returns the total number of cached photos.
func (c *SyncCache) PhotoCount() int {
	n := 0
	for _, album := range c.Albums {
		if album != nil {
			n += len(album.Photos)
		}
	}
	return n
}

// Clone returns a deep copy.
func (c *SyncCache) Clone() *SyncCache {
	dup := &SyncCache{
		AlbumsIdx: c.AlbumsIdx,
		Albums:    make(map[RecordPath]*Album, len(c.Albums)),
		LastSync:  c.LastSync,
	}
	for path, album := range c.Albums {
		if album == nil {
			dup.Albums[path] = &Album{}
			continue
		}
		dup.Albums[path] = &Album{
			Photos: slices.Clone(album.Photos),
			Cursor: album.Cursor,
		}
	}
	return dup
}

// Equal reports whether two caches hold the same cursors, albums and
// watermark. A nil album compares equal to an empty one.
func (c *SyncCache) Equal(other *SyncCache) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.AlbumsIdx != other.AlbumsIdx || !c.LastSync.Equal(other.LastSync) {
		return false
	}
	if len(c.Albums) != len(other.Albums) {
		return false
	}
	for path, a := range c.Albums {
		b, ok := other.Albums[path]
		if !ok {
			return false
		}
		if a == nil {
			a = &Album{}
		}
		if b == nil {
			b = &Album{}
		}
		if a.Cursor != b.Cursor || !slices.Equal(a.Photos, b.Photos) {
			return false
		}
	}
	return true
}
