// Package events turns UI events into service requests and state changes.
//
// Event is a closed set: TakePhoto, SelectImage and AdjustSetting. Handler
// dispatches on the concrete type.
package events

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/lensapp/lens/internal/camroll"
	"github.com/lensapp/lens/internal/service"
	"github.com/lensapp/lens/internal/settings"
	"github.com/lensapp/lens/internal/state"
)

// Event is something the user did.
type Event interface {
	isEvent()
}

// TakePhoto carries a freshly captured image.
type TakePhoto struct {
	// Payload is the encoded image; it is also the photo identifier.
	Payload string
	Width   float32
	Height  float32
}

// SelectImage marks a photo as selected.
type SelectImage struct {
	ID string
}

// AdjustSetting moves a settings slider to Percent (0 to 100).
type AdjustSetting struct {
	Kind    settings.Kind
	Percent float64
}

func (TakePhoto) isEvent()     {}
func (SelectImage) isEvent()   {}
func (AdjustSetting) isEvent() {}

// Submitter accepts service requests. *service.LensService implements it.
type Submitter interface {
	Submit(ctx context.Context, req service.Request) (uuid.UUID, error)
}

// Handler applies events.
type Handler struct {
	service        Submitter
	state          *state.Store
	cameraRollPath string
	settingsPath   string
	logger         *log.Logger

	// serializes camera roll and settings file writes
	mu sync.Mutex
}

// NewHandler creates a Handler. cameraRollPath and settingsPath are the files
// updated by TakePhoto and AdjustSetting.
func NewHandler(svc Submitter, st *state.Store, cameraRollPath, settingsPath string, logger *log.Logger) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if cameraRollPath == "" {
		return nil, fmt.Errorf("camera roll path cannot be empty")
	}
	if settingsPath == "" {
		return nil, fmt.Errorf("settings path cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[events] ", log.LstdFlags)
	}
	return &Handler{
		service:        svc,
		state:          st,
		cameraRollPath: cameraRollPath,
		settingsPath:   settingsPath,
		logger:         logger,
	}, nil
}

// Handle applies ev.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case TakePhoto:
		return h.takePhoto(ctx, ev)
	case SelectImage:
		h.state.Select(ev.ID)
		return nil
	case AdjustSetting:
		return h.adjustSetting(ev)
	case nil:
		return fmt.Errorf("event cannot be nil")
	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}

func (h *Handler) takePhoto(ctx context.Context, ev TakePhoto) error {
	if ev.Payload == "" {
		return fmt.Errorf("photo payload is empty")
	}

	id, err := h.service.Submit(ctx, service.SavePhoto{Payload: ev.Payload})
	if err != nil {
		return fmt.Errorf("failed to submit photo: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry := camroll.Entry{ID: ev.Payload, Width: ev.Width, Height: ev.Height}
	roll, err := h.state.AppendCameraRoll(entry, func(roll []camroll.Entry) error {
		return camroll.Save(h.cameraRollPath, roll)
	})
	if err != nil {
		return fmt.Errorf("failed to save camera roll: %w", err)
	}
	h.logger.Printf("Photo saved (request %s, %.0fx%.0f, %d in roll)", id, ev.Width, ev.Height, len(roll))
	return nil
}

func (h *Handler) adjustSetting(ev AdjustSetting) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := settings.Load(h.settingsPath)
	if err := s.Apply(ev.Kind, ev.Percent); err != nil {
		return err
	}
	if err := settings.Save(h.settingsPath, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Run handles events from ch until ctx is cancelled or ch is closed.
// Handler errors are logged.
func (h *Handler) Run(ctx context.Context, ch <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := h.Handle(ctx, ev); err != nil {
				h.logger.Printf("Warning: %T: %v", ev, err)
			}
		}
	}
}
