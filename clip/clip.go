// Package clip slices the master recording into the playable clips keyed by
// bucket and phase, and holds the process-wide volume.
package clip

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"clack/audio"
	"clack/keys"
)

var (
	// ErrDecode is audio.ErrDecode so callers need only import clip.
	ErrDecode          = audio.ErrDecode
	ErrSliceOutOfRange = audio.ErrOutOfRange
	ErrLoadInProgress  = errors.New("sound load already in progress")
)

type ID struct {
	Bucket int
	Phase  keys.Phase
}

// String renders the config key for id: "3" or "3-up".
func (id ID) String() string {
	if id.Phase == keys.Up {
		return fmt.Sprintf("%d-up", id.Bucket)
	}
	return fmt.Sprintf("%d", id.Bucket)
}

// Definition selects [StartMs, StartMs+DurationMs) of the master recording for one clip.
type Definition struct {
	ID         ID
	StartMs    uint
	DurationMs uint
}

// Clip is a ready-to-play PCM buffer. PCM is never modified once built; only
// the gain changes.
type Clip struct {
	ID     ID
	Format audio.Format
	PCM    []byte
	gain   atomic.Uint64
}

func newClip(id ID, f audio.Format, samples []int16, gain float64) *Clip {
	c := &Clip{ID: id, Format: f, PCM: audio.SamplesToBytes(samples)}
	c.SetGain(gain)
	return c
}

func (c *Clip) Gain() float64 {
	return math.Float64frombits(c.gain.Load())
}

func (c *Clip) SetGain(v float64) {
	c.gain.Store(math.Float64bits(Clamp(v)))
}

func (c *Clip) Samples() []int16 {
	return audio.BytesToSamples(c.PCM)
}

func (c *Clip) Duration() time.Duration {
	frameBytes := 2 * c.Format.Channels
	if frameBytes == 0 || c.Format.SampleRate == 0 {
		return 0
	}
	frames := len(c.PCM) / frameBytes
	return time.Duration(frames) * time.Second / time.Duration(c.Format.SampleRate)
}

// Clamp limits v to [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FromPercent converts a 0..100 control value to a gain.
func FromPercent(p float64) float64 {
	return Clamp(p / 100)
}
