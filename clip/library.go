package clip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"clack/audio"
	"clack/keys"
	"clack/log"
)

type Status int32

const (
	Empty Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "empty"
	}
}

// Library owns the master recording and the clips sliced from it. Readers
// never lock: the clip map is replaced wholesale through an atomic pointer.
type Library struct {
	// Decode reads the master recording. Defaults to audio.Decode.
	Decode func(ctx context.Context, path string) (*audio.Recording, error)

	loading   atomic.Bool
	status    atomic.Int32
	clips     atomic.Pointer[map[ID]*Clip]
	rec       atomic.Pointer[audio.Recording]
	volume    atomic.Uint64
	sliceErrs atomic.Pointer[[]error]
}

func NewLibrary() *Library {
	l := &Library{Decode: audio.Decode}
	l.volume.Store(math.Float64bits(1))
	empty := map[ID]*Clip{}
	l.clips.Store(&empty)
	return l
}

// Load decodes path and slices it by defs. Slices that do not fit are skipped
// and reported by SliceErrors; Load still ends Ready. A decode failure leaves
// the library Failed with no clips.
func (l *Library) Load(ctx context.Context, path string, defs []Definition) error {
	if !l.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer l.loading.Store(false)
	l.status.Store(int32(Loading))

	decodeStart := time.Now()
	rec, err := l.Decode(ctx, path)
	if err != nil {
		l.publish(nil, map[ID]*Clip{}, nil)
		l.status.Store(int32(Failed))
		return fmt.Errorf("loading %s: %w", path, err)
	}
	decodeDur := time.Since(decodeStart)

	sliceStart := time.Now()
	clips, errs := l.Slice(rec, defs)
	sliceDur := time.Since(sliceStart)
	for _, e := range errs {
		log.Warnf("skipping clip: %v", e)
	}

	l.publish(rec, clips, errs)
	// pick up a SetVolume that raced with slicing
	for _, c := range clips {
		c.SetGain(l.Volume())
	}
	l.status.Store(int32(Ready))

	log.Load(log.LoadMetrics{
		Sound:      path,
		SampleRate: rec.Format.SampleRate,
		Channels:   rec.Format.Channels,
		DurationMs: rec.Duration().Milliseconds(),
		Clips:      len(clips),
		Skipped:    len(errs),
		DecodeMs:   float64(decodeDur.Microseconds()) / 1000,
		SliceMs:    float64(sliceDur.Microseconds()) / 1000,
	})
	return nil
}

func (l *Library) publish(rec *audio.Recording, clips map[ID]*Clip, errs []error) {
	l.rec.Store(rec)
	l.clips.Store(&clips)
	l.sliceErrs.Store(&errs)
}

// Slice builds one clip per definition at the library's current volume. A
// definition outside the recording fails alone.
func (l *Library) Slice(rec *audio.Recording, defs []Definition) (map[ID]*Clip, []error) {
	gain := l.Volume()
	clips := make(map[ID]*Clip, len(defs))
	var errs []error
	for _, d := range defs {
		samples, err := rec.Slice(d.StartMs, d.DurationMs)
		if err != nil {
			errs = append(errs, fmt.Errorf("clip %s: %w", d.ID, err))
			continue
		}
		clips[d.ID] = newClip(d.ID, rec.Format, samples, gain)
	}
	return clips, errs
}

func (l *Library) Get(bucket int, phase keys.Phase) (*Clip, bool) {
	c, ok := (*l.clips.Load())[ID{Bucket: bucket, Phase: phase}]
	return c, ok
}

func (l *Library) Status() Status {
	return Status(l.status.Load())
}

func (l *Library) Len() int {
	return len(*l.clips.Load())
}

// IDs returns the loaded clip IDs ordered by bucket then phase.
func (l *Library) IDs() []ID {
	m := *l.clips.Load()
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Bucket != ids[j].Bucket {
			return ids[i].Bucket < ids[j].Bucket
		}
		return ids[i].Phase < ids[j].Phase
	})
	return ids
}

// Clips returns the loaded clips in IDs order.
func (l *Library) Clips() []*Clip {
	m := *l.clips.Load()
	ids := l.IDs()
	out := make([]*Clip, 0, len(ids))
	for _, id := range ids {
		if c, ok := m[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (l *Library) Recording() *audio.Recording {
	return l.rec.Load()
}

// SliceErrors returns the per-clip failures of the last load.
func (l *Library) SliceErrors() error {
	p := l.sliceErrs.Load()
	if p == nil {
		return nil
	}
	return errors.Join(*p...)
}

// SetVolume clamps v, applies it to every loaded clip and keeps it for clips
// built by later loads.
func (l *Library) SetVolume(v float64) float64 {
	v = Clamp(v)
	l.volume.Store(math.Float64bits(v))
	for _, c := range *l.clips.Load() {
		c.SetGain(v)
	}
	return v
}

func (l *Library) Volume() float64 {
	return math.Float64frombits(l.volume.Load())
}
