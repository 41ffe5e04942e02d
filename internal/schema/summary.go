package schema

import "time"

// AlbumSummary describes one cached album.
type AlbumSummary struct {
	Path   RecordPath `json:"path" yaml:"path"`
	Photos int        `json:"photos" yaml:"photos"`
	Cursor uint32     `json:"cursor" yaml:"cursor"`
}

// Summary is a size-only view of a SyncCache for status output.
type Summary struct {
	Albums    []AlbumSummary `json:"albums" yaml:"albums"`
	Photos    int            `json:"photos" yaml:"photos"`
	AlbumsIdx uint32         `json:"albums_idx" yaml:"albums_idx"`
	LastSync  time.Time      `json:"last_sync" yaml:"last_sync"`
}

// Summary returns per-album counts and cursors in album path order.
func (c *SyncCache) Summary() Summary {
	s := Summary{
		Albums:    make([]AlbumSummary, 0, len(c.Albums)),
		AlbumsIdx: c.AlbumsIdx,
		LastSync:  c.LastSync,
	}
	for _, path := range c.AlbumPaths() {
		album := c.Albums[path]
		s.Albums = append(s.Albums, AlbumSummary{
			Path:   path,
			Photos: len(album.Photos),
			Cursor: album.Cursor,
		})
		s.Photos += len(album.Photos)
	}
	return s
}
