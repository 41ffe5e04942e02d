package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lensapp/lens/internal/cachestore"
	"github.com/lensapp/lens/internal/camroll"
	"github.com/lensapp/lens/internal/record"
	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/service"
	"github.com/lensapp/lens/internal/settings"
)

// runLens executes the root command against a fresh data directory.
func runLens(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return t.TempDir()
}

func seedCache(t *testing.T, dataDir string, cache *schema.SyncCache) {
	t.Helper()
	backend, err := cachestore.OpenSQLite(filepath.Join(dataDir, "cache.db"))
	require.NoError(t, err)
	defer backend.Close()
	require.NoError(t, cachestore.Store(context.Background(), backend, service.CacheKey, cache))
}

func TestStatus_NoCache(t *testing.T) {
	dir := setup(t)

	out, err := runLens(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No cache yet")
}

func TestStatus_Formats(t *testing.T) {
	dir := setup(t)

	cache := schema.NewSyncCache()
	cache.SeedAlbum("/MYPHOTOS")
	cache.Albums["/MYPHOTOS"].InsertAt(0, "a")
	cache.Albums["/MYPHOTOS"].InsertAt(1, "b")
	cache.Albums["/MYPHOTOS"].Cursor = 2
	cache.SeedAlbum("/PHOTOS/TRIP")
	cache.LastSync = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seedCache(t, dir, cache)

	out, err := runLens(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "/MYPHOTOS")
	assert.Contains(t, out, "2 photos")
	assert.Contains(t, out, "cursor 2")

	out, err = runLens(t, dir, "status", "--format", "json")
	require.NoError(t, err)
	var fromJSON schema.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, 2, fromJSON.Photos)
	require.Len(t, fromJSON.Albums, 2)
	assert.Equal(t, schema.RecordPath("/MYPHOTOS"), fromJSON.Albums[0].Path)
	assert.Equal(t, uint32(2), fromJSON.Albums[0].Cursor)
	assert.True(t, cache.LastSync.Equal(fromJSON.LastSync))

	out, err = runLens(t, dir, "status", "-f", "yaml")
	require.NoError(t, err)
	var fromYAML schema.Summary
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, fromJSON.Albums, fromYAML.Albums)
	assert.Equal(t, 2, fromYAML.Photos)
}

func TestStatus_UnknownFormat(t *testing.T) {
	dir := setup(t)
	_, err := runLens(t, dir, "status", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestPublish_IDs(t *testing.T) {
	dir := setup(t)

	out, err := runLens(t, dir, "publish", "--id", "/MYPHOTOS", "p0", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "/MYPHOTOS/0000000000")
	assert.Contains(t, out, "/MYPHOTOS/0000000001")

	// A second run fills the next free slots.
	_, err = runLens(t, dir, "publish", "--id", "/MYPHOTOS", "p2")
	require.NoError(t, err)

	store, err := record.OpenPebble(filepath.Join(dir, "records"))
	require.NoError(t, err)
	defer store.Close()

	for i, want := range []string{"p0", "p1", "p2"} {
		rec, ok, err := store.Read(context.Background(), record.ChildPath("/MYPHOTOS", uint32(i)))
		require.NoError(t, err)
		require.True(t, ok, "record %d", i)
		id, err := record.DecodePhoto(rec.Payload)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestPublish_File(t *testing.T) {
	dir := setup(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 4))))
	file := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o644))

	_, err := runLens(t, dir, "publish", "PHOTOS/TRIP", file)
	require.NoError(t, err)

	store, err := record.OpenPebble(filepath.Join(dir, "records"))
	require.NoError(t, err)
	defer store.Close()

	rec, ok, err := store.Read(context.Background(), record.ChildPath("/PHOTOS/TRIP", 0))
	require.NoError(t, err)
	require.True(t, ok)
	id, err := record.DecodePhoto(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(buf.Bytes()), id)
}

func TestPublish_Errors(t *testing.T) {
	dir := setup(t)

	_, err := runLens(t, dir, "publish", "/MYPHOTOS")
	assert.Error(t, err, "missing files")

	_, err = runLens(t, dir, "publish", "/MYPHOTOS", filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	t.Setenv("LENS_RECORDS_BACKEND", "memory")
	_, err = runLens(t, dir, "publish", "--id", "/MYPHOTOS", "p0")
	assert.ErrorContains(t, err, "memory")
}

func TestPhotos(t *testing.T) {
	dir := setup(t)

	out, err := runLens(t, dir, "photos")
	require.NoError(t, err)
	assert.Contains(t, out, "empty")

	entries := []camroll.Entry{
		{ID: "short", Width: 640, Height: 480},
		{ID: "aVeryLongBase64PayloadThatKeepsGoing", Width: 10, Height: 20},
	}
	require.NoError(t, camroll.Save(camroll.DefaultPath(dir), entries))

	out, err = runLens(t, dir, "photos")
	require.NoError(t, err)
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "640x480")
	assert.Contains(t, out, "aVeryLongBase64Payloa...")

	out, err = runLens(t, dir, "photos", "--json")
	require.NoError(t, err)
	var decoded []camroll.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, entries, decoded)
}

func TestSettings_SetAndShow(t *testing.T) {
	dir := setup(t)

	out, err := runLens(t, dir, "settings", "set", "brightness", "75")
	require.NoError(t, err)
	assert.Contains(t, out, "brightness = 50")

	_, err = runLens(t, dir, "settings", "set", "White-Balance-R", "100")
	require.NoError(t, err)

	s := settings.Load(filepath.Join(dir, "settings.toml"))
	assert.Equal(t, 50, s.Brightness)
	assert.InDelta(t, 2.0, s.WhiteBalanceR, 1e-9)

	out, err = runLens(t, dir, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "brightness")
	assert.Contains(t, out, "(75%)")
	assert.Contains(t, out, "temperature")
}

func TestSettings_SetErrors(t *testing.T) {
	dir := setup(t)

	_, err := runLens(t, dir, "settings", "set", "sharpness", "10")
	assert.Error(t, err)

	_, err = runLens(t, dir, "settings", "set", "gamma", "lots")
	assert.ErrorContains(t, err, "invalid percent")
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"exactly-twenty-four-char", "exactly-twenty-four-char"},
		{"aVeryLongBase64PayloadThatKeepsGoing", "aVeryLongBase64Payloa..."},
		{"ééééééééééééééééééééééééé", "ééééééééééééééééééééé..."},
	}
	for _, tt := range tests {
		got := shortID(tt.in)
		assert.Equal(t, tt.want, got, "shortID(%q)", tt.in)
		assert.True(t, utf8.ValidString(got), "shortID(%q) is not valid UTF-8", tt.in)
	}
}
