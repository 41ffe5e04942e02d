// Package schema defines the sync cache model shared by the lens services.
//
// Overview
//
// Photos discovered in the record store are grouped into albums. Every album
// is addressed by a RecordPath and carries a cursor: the index of the next
// record the discovery service has not read yet. The whole model is persisted
// as a single SyncCache value so that cursors survive process restarts.
//
//	SyncCache
//	  ├── AlbumsIdx   cursor for album-level discovery
//	  ├── Albums      RecordPath → Album{Photos, Cursor}
//	  └── LastSync    watermark of the last completed poll
//
// Ordering
//
// RecordPaths compare segment by segment, so a parent always sorts before its
// children and iteration over albums is reproducible across runs. The
// flattened photo list exposed to the UI is the concatenation of each album's
// photos in that order (see SyncCache.Flatten).
//
// Cursors
//
// Cursors only move forward. Re-reading from a stale cursor (for example after
// a crash between discovery and persistence) re-inserts records that were
// already seen; duplicates are tolerated rather than deduplicated.
package schema
