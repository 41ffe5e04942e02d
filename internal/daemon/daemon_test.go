package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/lensapp/lens/internal/cachestore"
	"github.com/lensapp/lens/internal/camroll"
	"github.com/lensapp/lens/internal/config"
	"github.com/lensapp/lens/internal/dashboard"
	"github.com/lensapp/lens/internal/events"
	"github.com/lensapp/lens/internal/logging"
	"github.com/lensapp/lens/internal/record"
	"github.com/lensapp/lens/internal/schema"
	"github.com/lensapp/lens/internal/service"
	"github.com/lensapp/lens/internal/settings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir: dir,
		Cache:   config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "cache.db")},
		Records: config.StoreConfig{Backend: "memory"},
		Service: config.ServiceConfig{Tick: time.Millisecond},
		Sync: config.SyncConfig{
			Interval:   5 * time.Millisecond,
			Albums:     []string{"/MYPHOTOS"},
			AlbumsRoot: "/PHOTOS",
		},
		Inbox:    config.InboxConfig{Enabled: true, Dir: filepath.Join(dir, "inbox"), Debounce: 10 * time.Millisecond},
		Settings: config.SettingsConfig{Path: filepath.Join(dir, "settings.toml")},
	}
}

func startDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	d, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	cfg := testConfig(t)
	cfg.Cache.Backend = "redis"
	if _, err := New(cfg, logging.Discard()); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestStart_MalformedCameraRollIsFatal(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.CameraRollPath(), []byte("{not a list"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = d.Start(context.Background())
	if !errors.Is(err, camroll.ErrMalformed) {
		t.Fatalf("Start error = %v, want ErrMalformed", err)
	}
}

func TestDaemon_DiscoversPublishedRecords(t *testing.T) {
	d := startDaemon(t, testConfig(t))
	ctx := context.Background()

	for _, id := range []string{"p0", "p1"} {
		if _, err := record.Publish(ctx, d.Records(), "/MYPHOTOS", schema.PhotoProtocol, 0, record.EncodePhoto(id)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	eventually(t, "discovered photos", func() bool {
		return slices.Equal(d.State().Photos(), []string{"p0", "p1"})
	})
	eventually(t, "cursor persisted", func() bool {
		a, ok := d.Sync().Cache().Album("/MYPHOTOS")
		return ok && a.Cursor == 2
	})
}

func TestDaemon_PersistsCacheAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	d := startDaemon(t, cfg)
	if _, err := record.Publish(context.Background(), d.Records(), "/MYPHOTOS", schema.PhotoProtocol, 0, record.EncodePhoto("p0")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	eventually(t, "discovered photo", func() bool { return len(d.State().Photos()) == 1 })
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	backend, err := cachestore.OpenSQLite(cfg.Cache.Path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer backend.Close()
	cache, found, err := cachestore.Load[*schema.SyncCache](context.Background(), backend, service.CacheKey)
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if a := cache.Albums["/MYPHOTOS"]; a == nil || a.Cursor != 1 || !slices.Equal(a.Photos, []string{"p0"}) {
		t.Fatalf("persisted album = %+v", a)
	}
}

func TestDaemon_EventsReachState(t *testing.T) {
	cfg := testConfig(t)
	d := startDaemon(t, cfg)

	d.Events() <- events.TakePhoto{Payload: "local-1", Width: 10, Height: 20}
	d.Events() <- events.AdjustSetting{Kind: settings.Brightness, Percent: 100}
	d.Events() <- events.SelectImage{ID: "local-1"}

	eventually(t, "selection", func() bool { return d.State().Snapshot().Selected == "local-1" })
	eventually(t, "camera roll saved", func() bool {
		roll, err := camroll.Load(cfg.CameraRollPath())
		return err == nil && len(roll) == 1 && roll[0].ID == "local-1"
	})
	if got := settings.Load(cfg.Settings.Path).Brightness; got != 100 {
		t.Errorf("brightness = %d, want 100", got)
	}
}

func TestDaemon_InboxCapture(t *testing.T) {
	cfg := testConfig(t)
	d := startDaemon(t, cfg)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 7))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Inbox.Dir, "shot.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, "captured photo in camera roll", func() bool {
		roll := d.State().Snapshot().CameraRoll
		return len(roll) == 1 && roll[0].Width == 5 && roll[0].Height == 7
	})
}

func TestDaemon_Dashboard(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dashboard.Addr = "127.0.0.1:0"
	d := startDaemon(t, cfg)

	if _, err := record.Publish(context.Background(), d.Records(), "/MYPHOTOS", schema.PhotoProtocol, 0, record.EncodePhoto("p0")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	eventually(t, "discovered photo", func() bool { return len(d.State().Photos()) == 1 })

	resp, err := http.Get("http://" + d.Dashboard().Addr() + "/api/photos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var data dashboard.PhotosData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(data.Photos, []string{"p0"}) {
		t.Fatalf("dashboard photos = %v", data.Photos)
	}
}

func TestStop_Idempotent(t *testing.T) {
	d := startDaemon(t, testConfig(t))
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if _, err := d.Service().Submit(context.Background(), service.SavePhoto{Payload: "x"}); !errors.Is(err, service.ErrStopped) {
		t.Fatalf("Submit after Stop = %v", err)
	}
}
