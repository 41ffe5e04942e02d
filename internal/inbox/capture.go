package inbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/lensapp/lens/internal/events"
)

// ReadCapture loads an image file as a TakePhoto event. The payload is the
// base64 encoded file; width and height come from the image header.
func ReadCapture(path string) (events.TakePhoto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return events.TakePhoto{}, fmt.Errorf("failed to read capture: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return events.TakePhoto{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return events.TakePhoto{
		Payload: base64.StdEncoding.EncodeToString(data),
		Width:   float32(cfg.Width),
		Height:  float32(cfg.Height),
	}, nil
}

// Forward converts each path from paths into a TakePhoto event on out until
// ctx is cancelled or paths is closed. Unreadable files are logged and
// skipped.
func Forward(ctx context.Context, paths <-chan string, out chan<- events.Event, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			ev, err := ReadCapture(path)
			if err != nil {
				logger.Printf("Skipping %s: %v", path, err)
				continue
			}
			logger.Printf("Captured %s (%.0fx%.0f)", path, ev.Width, ev.Height)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
