package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lensapp/lens/internal/schema"
)

const recordPrefix = "rec:"

// PebbleStore keeps records in a Pebble database keyed by record path.
// Pebble's sorted keyspace matches the ordering of the record store.
type PebbleStore struct {
	db *pebble.DB
}

var _ Store = (*PebbleStore)(nil)

// OpenPebble opens (or creates) a store in dir on the local filesystem.
func OpenPebble(dir string) (*PebbleStore, error) {
	return OpenPebbleFS(dir, vfs.Default)
}

// OpenPebbleFS opens a store on fs. Tests pass vfs.NewMem().
func OpenPebbleFS(dir string, fs vfs.FS) (*PebbleStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("record store directory cannot be empty")
	}
	db, err := pebble.Open(dir, &pebble.Options{FS: fs})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble record store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) key(path schema.RecordPath) []byte {
	return []byte(recordPrefix + path.String())
}

func (p *PebbleStore) get(path schema.RecordPath) (Record, bool, error) {
	value, closer, err := p.db.Get(p.key(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to get %s: %w", path, err)
	}
	defer closer.Close()

	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return Record{}, true, fmt.Errorf("%w %s: %v", ErrCorrupt, path, err)
	}
	return rec, true, nil
}

// Discover implements Discoverer.
func (p *PebbleStore) Discover(_ context.Context, parent schema.RecordPath, cursor uint32, protocols []schema.Protocol) (Discovery, error) {
	path := ChildPath(parent, cursor)
	rec, ok, err := p.get(path)
	if errors.Is(err, ErrCorrupt) {
		// The protocol is unknown; let Read report the damage.
		return Discovery{Path: path, HasPath: true, Exists: true}, nil
	}
	if err != nil {
		return Discovery{}, err
	}
	if !ok {
		return Discovery{}, nil
	}
	if !Accepts(protocols, rec.Protocol) {
		return Discovery{Exists: true}, nil
	}
	return Discovery{Path: path, HasPath: true, Exists: true}, nil
}

// Read implements Reader.
func (p *PebbleStore) Read(_ context.Context, path schema.RecordPath) (Record, bool, error) {
	return p.get(path)
}

// Create implements Creator.
func (p *PebbleStore) Create(_ context.Context, parent schema.RecordPath, protocol schema.Protocol, index uint32, payload []byte) (schema.RecordPath, bool, error) {
	path := ChildPath(parent, index)

	_, ok, err := p.get(path)
	if ok {
		return path, true, nil
	}
	if err != nil {
		return path, false, err
	}

	data, err := json.Marshal(Record{Protocol: protocol, Payload: payload})
	if err != nil {
		return path, false, fmt.Errorf("failed to encode record %s: %w", path, err)
	}
	if err := p.db.Set(p.key(path), data, pebble.Sync); err != nil {
		return path, false, fmt.Errorf("failed to write record %s: %w", path, err)
	}
	return path, false, nil
}

// Close closes the database.
func (p *PebbleStore) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
