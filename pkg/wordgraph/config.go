package wordgraph

import (
	"fmt"
	"math"
)

// DefaultMinFrequency is the minimum number of occurrences a word needs to
// become a node when the caller does not ask for anything else.
const DefaultMinFrequency = 2

// DefaultMinTokenLength discards every token with two or fewer runes.
const DefaultMinTokenLength = 3

var defaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"from", "as", "is", "was", "are", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "could", "should", "may", "might", "must", "shall",
	"this", "that", "these", "those", "i", "you", "he", "she", "it", "we", "they", "me",
	"him", "her", "us", "them", "my", "your", "his", "their", "our",
}

// DefaultStopWords returns a fresh copy of the built-in stop word list.
func DefaultStopWords() []string {
	out := make([]string, len(defaultStopWords))
	copy(out, defaultStopWords)
	return out
}

// NodeSize maps a word count to the two node radii:
//
//	radiusX = clamp(count*ScaleX, MinRadiusX, MaxRadiusX)
//	radiusY = clamp(count*ScaleY, MinRadiusY, MaxRadiusY)
//
// The bounds keep very frequent words from taking over the canvas. None of
// the values influence graph topology.
type NodeSize struct {
	ScaleX     float64
	ScaleY     float64
	MinRadiusX float64
	MaxRadiusX float64
	MinRadiusY float64
	MaxRadiusY float64
}

// DefaultNodeSize returns the canonical node size mapping.
func DefaultNodeSize() NodeSize {
	return NodeSize{
		ScaleX:     4,
		ScaleY:     2.5,
		MinRadiusX: 24,
		MaxRadiusX: 80,
		MinRadiusY: 14,
		MaxRadiusY: 40,
	}
}

// Radii returns the clamped radii for a node with the given count.
func (s NodeSize) Radii(count int) (float64, float64) {
	rx := clamp(float64(count)*s.ScaleX, s.MinRadiusX, s.MaxRadiusX)
	ry := clamp(float64(count)*s.ScaleY, s.MinRadiusY, s.MaxRadiusY)
	return rx, ry
}

func (s NodeSize) validate() error {
	values := []float64{s.ScaleX, s.ScaleY, s.MinRadiusX, s.MaxRadiusX, s.MinRadiusY, s.MaxRadiusY}
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: node size values must be finite and non-negative", ErrInvalidConfig)
		}
	}
	if s.MinRadiusX > s.MaxRadiusX {
		return fmt.Errorf("%w: radius x range [%g, %g] is inverted", ErrInvalidConfig, s.MinRadiusX, s.MaxRadiusX)
	}
	if s.MinRadiusY > s.MaxRadiusY {
		return fmt.Errorf("%w: radius y range [%g, %g] is inverted", ErrInvalidConfig, s.MinRadiusY, s.MaxRadiusY)
	}
	return nil
}

// Config holds every tuning knob of the pipeline. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	MinFrequency   int
	MinTokenLength int
	StopWords      []string
	NodeSize       NodeSize
}

// DefaultConfig returns the canonical configuration.
func DefaultConfig() Config {
	return Config{
		MinFrequency:   DefaultMinFrequency,
		MinTokenLength: DefaultMinTokenLength,
		StopWords:      DefaultStopWords(),
		NodeSize:       DefaultNodeSize(),
	}
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if c.MinFrequency < 1 || c.MinFrequency > math.MaxInt32 {
		return fmt.Errorf("%w: min frequency must be in [1, %d], got %d", ErrInvalidConfig, math.MaxInt32, c.MinFrequency)
	}
	if c.MinTokenLength < 1 {
		return fmt.Errorf("%w: min token length must be >= 1, got %d", ErrInvalidConfig, c.MinTokenLength)
	}
	return c.NodeSize.validate()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
