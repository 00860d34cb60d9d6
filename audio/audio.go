package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDecode reports a master recording that is missing or unreadable.
	ErrDecode = errors.New("decode error")
	// ErrOutOfRange reports a slice that does not fit inside the recording.
	ErrOutOfRange = errors.New("slice out of range")
)

// MaxChannels is the widest layout kept after decoding; wider sources are folded to stereo.
const MaxChannels = 2

type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Recording is decoded interleaved signed 16-bit PCM. It is never mutated after Decode.
type Recording struct {
	Format  Format
	Samples []int16
}

func (r *Recording) Frames() int {
	if r.Format.Channels == 0 {
		return 0
	}
	return len(r.Samples) / r.Format.Channels
}

func (r *Recording) Duration() time.Duration {
	if r.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(r.Frames()) * time.Second / time.Duration(r.Format.SampleRate)
}

// Slice copies [startMs, startMs+durationMs) out of the recording.
func (r *Recording) Slice(startMs, durationMs uint) ([]int16, error) {
	if durationMs == 0 {
		return nil, fmt.Errorf("%w: empty slice at %dms", ErrOutOfRange, startMs)
	}
	startFrame := msToFrames(startMs, r.Format.SampleRate)
	endFrame := msToFrames(startMs+durationMs, r.Format.SampleRate)
	if endFrame > r.Frames() || endFrame <= startFrame {
		return nil, fmt.Errorf("%w: [%dms, %dms) exceeds recording length %s",
			ErrOutOfRange, startMs, startMs+durationMs, r.Duration())
	}
	ch := r.Format.Channels
	out := make([]int16, (endFrame-startFrame)*ch)
	copy(out, r.Samples[startFrame*ch:endFrame*ch])
	return out, nil
}

func msToFrames(ms uint, sampleRate int) int {
	return int(uint64(ms) * uint64(sampleRate) / 1000)
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples is the inverse of SamplesToBytes. A trailing odd byte is ignored.
func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

// Output plays PCM buffers. Play may block until the buffer has been rendered; callers
// run it on their own goroutine and may call it concurrently.
type Output interface {
	// Prepare opens the device for the given format before the first Play.
	Prepare(f Format) error
	Play(pcm []byte, f Format, gain float64) error
	Close()
}
