// Package settings holds the camera image settings adjusted from the UI
// sliders and persists them in ~/.local/share/lens/settings.toml.
//
// Sliders work in percent (0 to 100). Each Kind maps a percentage linearly
// onto the camera range for that setting:
//
//	brightness        -100 .. 100
//	contrast          -1.0 .. 1.0
//	saturation        -1.0 .. 1.0
//	gamma              0.1 .. 3.0
//	exposure          -2.0 .. 2.0
//	temperature       2000 .. 10000 (Kelvin)
//	white_balance_*    0.5 .. 2.0
package settings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Kind identifies one adjustable setting.
type Kind int

const (
	Brightness Kind = iota
	Contrast
	Saturation
	Gamma
	Exposure
	Temperature
	WhiteBalanceR
	WhiteBalanceG
	WhiteBalanceB
)

var kindNames = [...]string{
	Brightness:    "brightness",
	Contrast:      "contrast",
	Saturation:    "saturation",
	Gamma:         "gamma",
	Exposure:      "exposure",
	Temperature:   "temperature",
	WhiteBalanceR: "white_balance_r",
	WhiteBalanceG: "white_balance_g",
	WhiteBalanceB: "white_balance_b",
}

// Kinds lists every Kind in display order.
func Kinds() []Kind {
	return []Kind{Brightness, Contrast, Saturation, Gamma, Exposure, Temperature, WhiteBalanceR, WhiteBalanceG, WhiteBalanceB}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses a setting name such as "white_balance_r". Hyphens and
// case are ignored.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range kindNames {
		if name == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown setting %q", s)
}

// Settings are the camera image parameters.
type Settings struct {
	Brightness    int     `toml:"brightness"`
	Contrast      float64 `toml:"contrast"`
	Saturation    float64 `toml:"saturation"`
	Gamma         float64 `toml:"gamma"`
	Exposure      float64 `toml:"exposure"`
	Temperature   float64 `toml:"temperature"`
	WhiteBalanceR float64 `toml:"white_balance_r"`
	WhiteBalanceG float64 `toml:"white_balance_g"`
	WhiteBalanceB float64 `toml:"white_balance_b"`
}

// Default returns neutral camera settings.
func Default() Settings {
	return Settings{
		Gamma:         1.0,
		Temperature:   6500,
		WhiteBalanceR: 1.0,
		WhiteBalanceG: 1.0,
		WhiteBalanceB: 1.0,
	}
}

// Apply sets kind from a slider position. percent is clamped to 0..100 and
// the result to the setting's range.
func (s *Settings) Apply(kind Kind, percent float64) error {
	p := clamp(percent, 0, 100) / 100

	switch kind {
	case Brightness:
		s.Brightness = int(clamp(p*200-100, -100, 100))
	case Contrast:
		s.Contrast = clamp(p*2-1, -1, 1)
	case Saturation:
		s.Saturation = clamp(p*2-1, -1, 1)
	case Gamma:
		s.Gamma = clamp(0.1+p*(3.0-0.1), 0.1, 3.0)
	case Exposure:
		s.Exposure = clamp(p*4-2, -2, 2)
	case Temperature:
		s.Temperature = clamp(2000+p*8000, 2000, 10000)
	case WhiteBalanceR:
		s.WhiteBalanceR = clamp(0.5+p*1.5, 0.5, 2.0)
	case WhiteBalanceG:
		s.WhiteBalanceG = clamp(0.5+p*1.5, 0.5, 2.0)
	case WhiteBalanceB:
		s.WhiteBalanceB = clamp(0.5+p*1.5, 0.5, 2.0)
	default:
		return fmt.Errorf("unknown setting %s", kind)
	}
	return nil
}

// Percent returns the slider position that corresponds to the current value
// of kind.
func (s Settings) Percent(kind Kind) (float64, error) {
	var p float64
	switch kind {
	case Brightness:
		p = (float64(s.Brightness) + 100) / 200
	case Contrast:
		p = (s.Contrast + 1) / 2
	case Saturation:
		p = (s.Saturation + 1) / 2
	case Gamma:
		p = (s.Gamma - 0.1) / (3.0 - 0.1)
	case Exposure:
		p = (s.Exposure + 2) / 4
	case Temperature:
		p = (s.Temperature - 2000) / 8000
	case WhiteBalanceR:
		p = (s.WhiteBalanceR - 0.5) / 1.5
	case WhiteBalanceG:
		p = (s.WhiteBalanceG - 0.5) / 1.5
	case WhiteBalanceB:
		p = (s.WhiteBalanceB - 0.5) / 1.5
	default:
		return 0, fmt.Errorf("unknown setting %s", kind)
	}
	return clamp(p*100, 0, 100), nil
}

// Value returns the camera value of kind as a float.
func (s Settings) Value(kind Kind) (float64, error) {
	switch kind {
	case Brightness:
		return float64(s.Brightness), nil
	case Contrast:
		return s.Contrast, nil
	case Saturation:
		return s.Saturation, nil
	case Gamma:
		return s.Gamma, nil
	case Exposure:
		return s.Exposure, nil
	case Temperature:
		return s.Temperature, nil
	case WhiteBalanceR:
		return s.WhiteBalanceR, nil
	case WhiteBalanceG:
		return s.WhiteBalanceG, nil
	case WhiteBalanceB:
		return s.WhiteBalanceB, nil
	default:
		return 0, fmt.Errorf("unknown setting %s", kind)
	}
}

// normalize pulls every value back into range.
func (s *Settings) normalize() {
	s.Brightness = int(clamp(float64(s.Brightness), -100, 100))
	s.Contrast = clamp(s.Contrast, -1, 1)
	s.Saturation = clamp(s.Saturation, -1, 1)
	s.Gamma = clamp(s.Gamma, 0.1, 3.0)
	s.Exposure = clamp(s.Exposure, -2, 2)
	s.Temperature = clamp(s.Temperature, 2000, 10000)
	s.WhiteBalanceR = clamp(s.WhiteBalanceR, 0.5, 2.0)
	s.WhiteBalanceG = clamp(s.WhiteBalanceG, 0.5, 2.0)
	s.WhiteBalanceB = clamp(s.WhiteBalanceB, 0.5, 2.0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// Load reads settings from path. A missing or unparsable file yields the
// defaults; keys absent from the file keep their default value.
func Load(path string) Settings {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return Default()
	}
	s.normalize()
	return s
}

// Save writes s to path, creating directories as needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("settings file %s is not writable: %w", path, err)
		}
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
