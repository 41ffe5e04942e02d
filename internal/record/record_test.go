package record

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensapp/lens/internal/schema"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	pebbleStore, err := OpenPebbleFS("records", vfs.NewMem())
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemStore(),
		"pebble": pebbleStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_DiscoverReadCreate(t *testing.T) {
	ctx := context.Background()
	album := schema.MustParsePath("/MYPHOTOS")
	filter := []schema.Protocol{schema.PhotoProtocol}

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			d, err := s.Discover(ctx, album, 0, filter)
			require.NoError(t, err)
			assert.False(t, d.Exists, "empty album should be exhausted at cursor 0")

			path, existed, err := s.Create(ctx, album, schema.PhotoProtocol, 0, EncodePhoto("p0"))
			require.NoError(t, err)
			assert.False(t, existed)
			assert.Equal(t, ChildPath(album, 0), path)

			_, existed, err = s.Create(ctx, album, schema.PhotoProtocol, 0, EncodePhoto("other"))
			require.NoError(t, err)
			assert.True(t, existed, "second create at the same index must report existed")

			d, err = s.Discover(ctx, album, 0, filter)
			require.NoError(t, err)
			assert.Equal(t, Discovery{Path: path, HasPath: true, Exists: true}, d)

			rec, ok, err := s.Read(ctx, d.Path)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, schema.PhotoProtocol, rec.Protocol)

			id, err := DecodePhoto(rec.Payload)
			require.NoError(t, err)
			assert.Equal(t, "p0", id, "existing record must not be overwritten")

			d, err = s.Discover(ctx, album, 1, filter)
			require.NoError(t, err)
			assert.False(t, d.Exists)
		})
	}
}

func TestStores_ProtocolFilter(t *testing.T) {
	ctx := context.Background()
	album := schema.MustParsePath("/A")

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.Create(ctx, album, schema.PhotosProtocol, 0, []byte(`[]`))
			require.NoError(t, err)

			d, err := s.Discover(ctx, album, 0, []schema.Protocol{schema.PhotoProtocol})
			require.NoError(t, err)
			assert.True(t, d.Exists)
			assert.False(t, d.HasPath, "filtered slot exists but has no path")

			d, err = s.Discover(ctx, album, 0, nil)
			require.NoError(t, err)
			assert.True(t, d.HasPath, "empty filter accepts every protocol")
		})
	}
}

func TestStores_ReadMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Read(context.Background(), "/nope")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPublish_FindsFirstFreeIndex(t *testing.T) {
	ctx := context.Background()
	album := schema.MustParsePath("/A")

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i, want := range []uint32{0, 1, 2} {
				idx, err := Publish(ctx, s, album, schema.PhotoProtocol, 0, EncodePhoto("p"))
				require.NoError(t, err)
				assert.Equal(t, want, idx, "publish #%d", i)
			}
		})
	}
}

func TestPebbleStore_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	s, err := OpenPebbleFS("records", vfs.NewMem())
	require.NoError(t, err)
	defer s.Close()

	a := schema.MustParsePath("/A")
	corrupt := ChildPath(a, 0)
	require.NoError(t, s.db.Set(s.key(corrupt), []byte("{not json"), pebble.Sync))

	d, err := s.Discover(ctx, a, 0, []schema.Protocol{schema.PhotoProtocol})
	require.NoError(t, err)
	assert.Equal(t, Discovery{Path: corrupt, HasPath: true, Exists: true}, d)

	_, ok, err := s.Read(ctx, corrupt)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.True(t, ok, "a corrupt slot is still occupied")

	// Publishing skips the damaged slot instead of failing.
	idx, err := Publish(ctx, s, a, schema.PhotoProtocol, 0, EncodePhoto("p1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
}

func TestChildPathIndexRoundTrip(t *testing.T) {
	p := ChildPath("/A", 42)
	assert.Equal(t, schema.RecordPath("/A/0000000042"), p)

	idx, ok := ChildIndex(p)
	require.True(t, ok)
	assert.Equal(t, uint32(42), idx)

	_, ok = ChildIndex("/A/not-a-number")
	assert.False(t, ok)
}

func TestDecodePhoto_RejectsNonString(t *testing.T) {
	_, err := DecodePhoto([]byte(`{"not":"a string"}`))
	assert.Error(t, err)
}
