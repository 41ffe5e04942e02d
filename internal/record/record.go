// Package record defines the record-store interfaces consumed by the sync
// services, along with two local backends.
//
// The distributed record store is an external collaborator: lens only relies
// on its discover, read and create operations. Records live at RecordPaths;
// the children of a path are addressed by a dense index, so a reader can walk
// a parent by probing index 0, 1, 2, ... until discovery reports that nothing
// exists at the cursor.
//
// Backends:
//
//   - MemStore: in-process map, for tests and ephemeral runs
//   - PebbleStore: sorted on-disk store, the local stand-in for a peer
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/lensapp/lens/internal/schema"
)

// ErrNotFound is returned when a record is expected but absent.
var ErrNotFound = errors.New("record not found")

// ErrCorrupt is returned by Read when a slot holds bytes that are not a
// record. The slot still counts as occupied.
var ErrCorrupt = errors.New("corrupt record")

// Record is a stored payload tagged with its protocol.
type Record struct {
	Protocol schema.Protocol `json:"protocol"`
	Payload  []byte          `json:"payload"`
}

// Discovery is the result of probing a parent at a cursor.
//
// Exists=false means the stream under the parent is exhausted at the cursor.
// Exists=true with HasPath=false means a record occupies the slot but does
// not match the protocol filter; readers skip it and advance.
type Discovery struct {
	Path    schema.RecordPath
	HasPath bool
	Exists  bool
}

// Discoverer finds child records by index.
type Discoverer interface {
	Discover(ctx context.Context, parent schema.RecordPath, cursor uint32, protocols []schema.Protocol) (Discovery, error)
}

// Reader loads records by path.
type Reader interface {
	// Read returns the record at path; ok is false if nothing is stored there.
	Read(ctx context.Context, path schema.RecordPath) (rec Record, ok bool, err error)
}

// Creator writes new child records.
type Creator interface {
	// Create stores payload as child index of parent. If the slot is already
	// taken nothing is written and existed is true.
	Create(ctx context.Context, parent schema.RecordPath, protocol schema.Protocol, index uint32, payload []byte) (path schema.RecordPath, existed bool, err error)
}

// Store is the full record-store surface.
type Store interface {
	Discoverer
	Reader
	Creator
	Close() error
}

// ChildPath returns the path of child index under parent. The index segment is
// zero padded so that byte order and numeric order agree.
func ChildPath(parent schema.RecordPath, index uint32) schema.RecordPath {
	return parent.Join(fmt.Sprintf("%010d", index))
}

// ChildIndex parses the index segment written by ChildPath.
func ChildIndex(path schema.RecordPath) (uint32, bool) {
	n, err := strconv.ParseUint(path.Base(), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Accepts reports whether protocol passes the filter. An empty filter accepts
// everything.
func Accepts(protocols []schema.Protocol, protocol schema.Protocol) bool {
	return len(protocols) == 0 || slices.Contains(protocols, protocol)
}

// EncodePhoto encodes a photo identifier as a record payload.
func EncodePhoto(id string) []byte {
	data, _ := json.Marshal(id)
	return data
}

// DecodePhoto decodes a payload written by EncodePhoto.
func DecodePhoto(payload []byte) (string, error) {
	var id string
	if err := json.Unmarshal(payload, &id); err != nil {
		return "", fmt.Errorf("decode photo payload: %w", err)
	}
	return id, nil
}

// Publish creates payload under parent at the first free index at or after
// start and returns the index it landed on.
func Publish(ctx context.Context, c Creator, parent schema.RecordPath, protocol schema.Protocol, start uint32, payload []byte) (uint32, error) {
	for idx := start; ; idx++ {
		_, existed, err := c.Create(ctx, parent, protocol, idx, payload)
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", ChildPath(parent, idx), err)
		}
		if !existed {
			return idx, nil
		}
		if idx == ^uint32(0) {
			return 0, fmt.Errorf("no free index under %s", parent)
		}
	}
}
