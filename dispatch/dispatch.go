// Package dispatch turns queued key events into clip playback.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"clack/audio"
	"clack/clip"
	"clack/keys"
	"clack/log"
)

var ErrEmptyBucket = errors.New("no clip defined for bucket")

const (
	DefaultWorkers = 16
	StopTimeout    = 500 * time.Millisecond
)

// Request is a key event resolved to the clip it should play.
type Request struct {
	Key    keys.Key
	Bucket int
	Phase  keys.Phase
}

func (r Request) ID() clip.ID {
	return clip.ID{Bucket: r.Bucket, Phase: r.Phase}
}

// Clips is the read side of clip.Library.
type Clips interface {
	Get(bucket int, phase keys.Phase) (*clip.Clip, bool)
}

// Dispatcher drains an unbounded FIFO of key events on one goroutine and
// plays each resolved clip on a worker bounded by a semaphore.
type Dispatcher struct {
	// OnDispatch, when set, is called for every dequeued request in queue order.
	OnDispatch func(Request)

	clips Clips
	out   audio.Output
	sem   *semaphore.Weighted

	mu      sync.Mutex
	queue   []keys.Event
	notify  chan struct{}
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	// gen identifies the current consumer. A consumer left over from a Stop
	// that timed out sees a newer gen and exits without popping.
	gen uint64

	dispatched atomic.Uint64
	dropped    atomic.Uint64
}

func New(clips Clips, out audio.Output, workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		clips: clips,
		out:   out,
		sem:   semaphore.NewWeighted(int64(workers)),
	}
}

// Enqueue appends e without blocking. Events are dropped while stopped.
func (d *Dispatcher) Enqueue(e keys.Event) bool {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, e)
	notify := d.notify
	d.mu.Unlock()

	select {
	case notify <- struct{}{}:
	default:
	}
	return true
}

// Start arms the consumer. Calling Start on a running dispatcher does nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.done = make(chan struct{})
	d.notify = make(chan struct{}, 1)
	d.gen++
	go d.run(ctx, d.gen, d.notify, d.done)
}

// Stop cancels the consumer, discards queued events and waits up to
// StopTimeout for it to exit. Playbacks already started finish on their own.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.gen++
	d.queue = nil
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
	case <-time.After(StopTimeout):
		log.Warnf("dispatcher did not stop within %v", StopTimeout)
	}
}

func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Dispatcher) Dispatched() uint64 { return d.dispatched.Load() }
func (d *Dispatcher) Dropped() uint64    { return d.dropped.Load() }

// next pops the head of the queue for consumer gen. stale reports that gen
// has been stopped.
func (d *Dispatcher) next(gen uint64) (e keys.Event, ok, stale bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return keys.Event{}, false, true
	}
	if len(d.queue) == 0 {
		return keys.Event{}, false, false
	}
	e = d.queue[0]
	d.queue[0] = keys.Event{}
	d.queue = d.queue[1:]
	return e, true, false
}

func (d *Dispatcher) run(ctx context.Context, gen uint64, notify <-chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		e, ok, stale := d.next(gen)
		if stale {
			return
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-notify:
			}
			continue
		}
		d.handle(ctx, e)
	}
}

func (d *Dispatcher) handle(ctx context.Context, e keys.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("dispatch %v: panic: %v", e, r)
		}
	}()

	req := Request{Key: e.Key, Bucket: keys.Bucket(e.Key), Phase: e.Phase}
	if d.OnDispatch != nil {
		d.OnDispatch(req)
	}

	c, err := d.resolve(req)
	if err != nil {
		d.dropped.Add(1)
		log.Debugf("%v", err)
		return
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return
	}
	d.dispatched.Add(1)
	gain := c.Gain()
	go func() {
		defer d.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("playback %s: panic: %v", c.ID, r)
			}
		}()
		if err := d.out.Play(c.PCM, c.Format, gain); err != nil {
			log.Warnf("playback %s: %v", c.ID, err)
		}
	}()
}

func (d *Dispatcher) resolve(req Request) (*clip.Clip, error) {
	c, ok := d.clips.Get(req.Bucket, req.Phase)
	if !ok {
		return nil, fmt.Errorf("%w: %s (key %v)", ErrEmptyBucket, req.ID(), req.Key)
	}
	return c, nil
}
