// Package state owns the application state shown to the UI: the merged photo
// list, the local camera roll and the current selection.
//
// The photo list has two writers, the request loop and the discovery loop.
// Neither touches the list directly; both send Updates to the Store, whose Run
// goroutine applies them one at a time in arrival order. Readers take copies
// with Snapshot or receive them through Subscribe.
package state

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lensapp/lens/internal/camroll"
)

// DefaultQueueSize is the update channel capacity used by New.
const DefaultQueueSize = 64

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Photos     []string
	CameraRoll []camroll.Entry
	Selected   string

	// Version increases by one on every applied change.
	Version   uint64
	UpdatedAt time.Time
}

// Store coordinates updates to the snapshot.
type Store struct {
	updates chan Update

	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
}

// New creates a store holding initial.
func New(initial Snapshot) *Store {
	s := &Store{
		updates: make(chan Update, DefaultQueueSize),
		subs:    make(map[int]chan Snapshot),
	}
	s.snapshot = cloneSnapshot(initial)
	if s.snapshot.Photos == nil {
		s.snapshot.Photos = []string{}
	}
	if s.snapshot.UpdatedAt.IsZero() {
		s.snapshot.UpdatedAt = time.Now()
	}
	return s
}

// Run applies queued updates until ctx is cancelled. Exactly one Run should
// be active per Store.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-s.updates:
			s.apply(u)
		}
	}
}

// Send queues u for the Run goroutine. It blocks while the queue is full and
// returns ctx.Err() if ctx ends first.
func (s *Store) Send(ctx context.Context, u Update) error {
	select {
	case s.updates <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates exposes the send side of the update channel.
func (s *Store) Updates() chan<- Update {
	return s.updates
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snapshot)
}

// Photos returns a copy of the current photo list.
func (s *Store) Photos() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot.Photos)
}

// Subscribe returns a channel that receives the current snapshot immediately
// and then the latest snapshot after each change. Slow subscribers miss
// intermediate versions but always see the newest one. Call cancel to
// unsubscribe; it closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- cloneSnapshot(s.snapshot)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// SetCameraRoll replaces the camera roll.
func (s *Store) SetCameraRoll(entries []camroll.Entry) {
	s.mutate(func(snap *Snapshot) {
		snap.CameraRoll = slices.Clone(entries)
	})
}

// AppendCameraRoll adds entry to the camera roll and returns the new roll.
// persist is called with the new roll first; if it fails the roll is left
// unchanged and its error is returned.
func (s *Store) AppendCameraRoll(entry camroll.Entry, persist func([]camroll.Entry) error) ([]camroll.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roll := append(slices.Clone(s.snapshot.CameraRoll), entry)
	if persist != nil {
		if err := persist(slices.Clone(roll)); err != nil {
			return nil, err
		}
	}
	s.snapshot.CameraRoll = roll
	s.commitLocked()
	return slices.Clone(roll), nil
}

// Select records the photo currently selected in the UI.
func (s *Store) Select(id string) {
	s.mutate(func(snap *Snapshot) {
		snap.Selected = id
	})
}

func (s *Store) apply(u Update) {
	s.mutate(func(snap *Snapshot) {
		snap.Photos = Apply(snap.Photos, u)
	})
}

func (s *Store) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.snapshot)
	s.commitLocked()
}

// commitLocked bumps the version and notifies subscribers. s.mu must be held.
func (s *Store) commitLocked() {
	s.snapshot.Version++
	s.snapshot.UpdatedAt = time.Now()

	for _, ch := range s.subs {
		notify(ch, cloneSnapshot(s.snapshot))
	}
}

// notify replaces any unread snapshot in ch with snap.
func notify(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func cloneSnapshot(snap Snapshot) Snapshot {
	dup := snap
	dup.Photos = slices.Clone(snap.Photos)
	dup.CameraRoll = slices.Clone(snap.CameraRoll)
	return dup
}
