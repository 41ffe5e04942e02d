package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/lensapp/lens/internal/cachestore"
	"github.com/lensapp/lens/internal/metrics"
	"github.com/lensapp/lens/internal/record"
	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/state"
)

// CacheKey is the cache store key holding the SyncCache.
const CacheKey = "LensCache"

// Source is the part of the record store the discovery loop reads from.
type Source interface {
	record.Discoverer
	record.Reader
}

// SyncConfig holds configuration for LensSync.
type SyncConfig struct {
	// Interval is the pause between discovery cycles
	Interval time.Duration

	// Albums are registered at startup with cursor zero unless already known
	Albums []schema.RecordPath

	// DiscoverAlbums enables album-level discovery under AlbumsRoot
	DiscoverAlbums bool
	AlbumsRoot     schema.RecordPath

	// Verbose logs every discovered record
	Verbose bool

	// Logger for sync activity
	Logger *log.Logger

	// Metrics is optional
	Metrics *metrics.Metrics

	// Now stamps LastSync; defaults to time.Now
	Now func() time.Time
}

// DefaultSyncConfig returns the default discovery settings.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Interval:   time.Second,
		Albums:     []schema.RecordPath{"/MYPHOTOS"},
		AlbumsRoot: "/PHOTOS",
		Logger:     log.New(os.Stderr, "[sync] ", log.LstdFlags),
		Now:        time.Now,
	}
}

// CycleResult summarizes one discovery cycle.
type CycleResult struct {
	// Mutated is true when at least one photo was inserted
	Mutated bool

	// Published is true when a ReplacePhotos update was sent
	Published bool

	Discovered       int
	Dropped          int
	Filtered         int
	AlbumsDiscovered int

	// Errors counts discover/read failures; affected albums resume next cycle
	Errors int
}

// LensSync is the periodic discovery service.
type LensSync struct {
	source  Source
	backend cachestore.Backend
	state   Sender
	config  *SyncConfig

	mu        sync.Mutex
	cache     *schema.SyncCache
	published bool
}

// NewLensSync creates the discovery service and loads its cache from
// backend. An absent or unreadable cache starts empty; configured albums are
// then seeded without touching existing cursors.
func NewLensSync(ctx context.Context, source Source, backend cachestore.Backend, st Sender, config *SyncConfig) (*LensSync, error) {
	if source == nil {
		return nil, fmt.Errorf("record source cannot be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("cache backend cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if config == nil {
		config = DefaultSyncConfig()
	}
	defaults := DefaultSyncConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.AlbumsRoot == "" {
		config.AlbumsRoot = defaults.AlbumsRoot
	}

	s := &LensSync{
		source:  source,
		backend: backend,
		state:   st,
		config:  config,
	}
	s.cache = s.loadCache(ctx)
	return s, nil
}

func (s *LensSync) loadCache(ctx context.Context) *schema.SyncCache {
	loaded, found, err := cachestore.Load[*schema.SyncCache](ctx, s.backend, CacheKey)
	var cache *schema.SyncCache
	switch {
	case err != nil:
		s.config.Logger.Printf("Warning: %v; starting with an empty cache", err)
		cache = schema.NewSyncCache()
	case !found || loaded == nil:
		cache = schema.NewSyncCache()
	default:
		cache = loaded
		cache.Normalize()
		s.config.Logger.Printf("Loaded cache: %d albums, %d photos, last sync %s",
			len(cache.Albums), cache.PhotoCount(), cache.LastSync.Format(time.RFC3339))
	}

	for _, album := range s.config.Albums {
		if cache.SeedAlbum(album) {
			s.config.Logger.Printf("Tracking album %s", album)
		}
	}
	return cache
}

// Cache returns a copy of the current cache.
func (s *LensSync) Cache() *schema.SyncCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Clone()
}

// Tick runs one discovery cycle: sweep, publish if needed, persist.
// A persistence failure is returned; the in-memory cache keeps its progress
// and the next cycle writes it again.
func (s *LensSync) Tick(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	res, err := s.tick(ctx)
	s.config.Metrics.ObserveCycle(time.Since(start), err)
	return res, err
}

func (s *LensSync) tick(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res CycleResult

	if s.config.DiscoverAlbums {
		s.discoverAlbums(ctx, &res)
	}

	for _, path := range s.cache.AlbumPaths() {
		if ctx.Err() != nil {
			break
		}
		s.sweepAlbum(ctx, path, s.cache.Albums[path], &res)
	}

	s.config.Metrics.RecordDiscovered(res.Discovered)
	s.config.Metrics.RecordDropped(res.Dropped)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if res.Mutated || !s.published {
		photos := s.cache.Flatten()
		if err := s.state.Send(ctx, state.ReplacePhotos{IDs: photos}); err != nil {
			return res, fmt.Errorf("failed to publish photos: %w", err)
		}
		s.published = true
		res.Published = true
		s.config.Metrics.RecordPublish(len(photos))
		if res.Mutated {
			s.config.Logger.Printf("Published %d photos (%d new)", len(photos), res.Discovered)
		}
	}

	s.cache.LastSync = s.config.Now().UTC()
	if err := cachestore.Store(ctx, s.backend, CacheKey, s.cache); err != nil {
		return res, fmt.Errorf("failed to persist cache: %w", err)
	}
	return res, nil
}

// discoverAlbums registers albums found under AlbumsRoot.
func (s *LensSync) discoverAlbums(ctx context.Context, res *CycleResult) {
	root := s.config.AlbumsRoot
	protocols := []schema.Protocol{schema.PhotosProtocol}

	for s.cache.AlbumsIdx < math.MaxUint32 {
		d, err := s.source.Discover(ctx, root, s.cache.AlbumsIdx, protocols)
		if err != nil {
			s.logError(ctx, "discover albums under %s at %d: %v", root, s.cache.AlbumsIdx, err)
			res.Errors++
			return
		}
		if !d.Exists {
			return
		}
		if d.HasPath && s.cache.SeedAlbum(d.Path) {
			res.AlbumsDiscovered++
			s.config.Logger.Printf("Discovered album %s", d.Path)
		}
		s.cache.AlbumsIdx++
	}
}

// sweepAlbum reads every record from the album cursor to the end of the
// stream.
func (s *LensSync) sweepAlbum(ctx context.Context, path schema.RecordPath, album *schema.Album, res *CycleResult) {
	protocols := []schema.Protocol{schema.PhotoProtocol}

	for album.Cursor < math.MaxUint32 {
		d, err := s.source.Discover(ctx, path, album.Cursor, protocols)
		if err != nil {
			s.logError(ctx, "discover %s at %d: %v", path, album.Cursor, err)
			res.Errors++
			return
		}
		if !d.Exists {
			return
		}
		if !d.HasPath {
			res.Filtered++
			album.Cursor++
			continue
		}

		rec, ok, err := s.source.Read(ctx, d.Path)
		if errors.Is(err, record.ErrCorrupt) {
			s.config.Logger.Printf("Warning: dropping %s: %v", d.Path, err)
			res.Dropped++
			album.Cursor++
			continue
		}
		if err != nil {
			s.logError(ctx, "read %s: %v", d.Path, err)
			res.Errors++
			return
		}
		if !ok {
			s.config.Logger.Printf("Warning: %s vanished after discovery, skipping", d.Path)
			res.Dropped++
			album.Cursor++
			continue
		}

		id, err := record.DecodePhoto(rec.Payload)
		if err != nil {
			s.config.Logger.Printf("Warning: dropping %s: %v", d.Path, err)
			res.Dropped++
			album.Cursor++
			continue
		}

		album.InsertAt(album.Cursor, id)
		album.Cursor++
		res.Discovered++
		res.Mutated = true
		if s.config.Verbose {
			s.config.Logger.Printf("Discovered %s (%d bytes)", d.Path, len(rec.Payload))
		}
	}
}

func (s *LensSync) logError(ctx context.Context, format string, args ...any) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	s.config.Logger.Printf("Warning: "+format, args...)
}

// Run polls every Interval until ctx is cancelled.
func (s *LensSync) Run(ctx context.Context) error {
	s.config.Logger.Printf("Starting discovery loop (interval %s)", s.config.Interval)

	Loop(ctx, "sync", s.config.Logger, s.config.Interval, nil, func(ctx context.Context) error {
		_, err := s.Tick(ctx)
		return err
	})

	// The last cycle may have been cut short before it persisted.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		s.config.Logger.Printf("Warning: final cache flush failed: %v", err)
	}

	s.config.Logger.Println("Discovery loop stopped")
	return nil
}

// Flush persists the current cache without running a cycle.
func (s *LensSync) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := cachestore.Store(ctx, s.backend, CacheKey, s.cache); err != nil {
		return fmt.Errorf("failed to persist cache: %w", err)
	}
	return nil
}
