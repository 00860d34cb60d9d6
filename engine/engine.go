// Package engine coordinates loading the sound pack and arming the key source
// and dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"clack/audio"
	"clack/clip"
	"clack/config"
	"clack/dispatch"
	"clack/keys"
	"clack/log"
)

var (
	ErrStillLoading = errors.New("sound still loading")
	ErrAudioFailed  = errors.New("sound failed to load")
	ErrNotLoaded    = errors.New("no sound loaded")
	ErrClosed       = errors.New("controller closed")
)

const (
	MsgLoading      = "Loading sound..."
	MsgLoaded       = "Sound loaded. Press Start."
	MsgLoadFailed   = "Error loading sound!"
	MsgStillLoading = "Still loading sound, please wait..."
	MsgRunning      = "Keyboard running..."
	MsgStopped      = "Keyboard stopped"
)

type State int

const (
	Idle State = iota
	LoadingAudio
	AudioReady
	AudioFailed
	Listening
)

func (s State) String() string {
	switch s {
	case LoadingAudio:
		return "loading"
	case AudioReady:
		return "ready"
	case AudioFailed:
		return "failed"
	case Listening:
		return "listening"
	default:
		return "idle"
	}
}

// Status is reported on every transition and for every key press.
type Status struct {
	State   State
	Message string
	// Title names the loaded sound pack once a load has succeeded.
	Title string
	// Last is set on key press notifications.
	Last *dispatch.Request
	Err  error
}

type Options struct {
	ConfigPath string
	Source     keys.Source
	Output     audio.Output
	Workers    int
	// Volume in percent, 0..100.
	Volume float64
	// Autostart starts listening as soon as a load succeeds.
	Autostart bool
	// LoadConfig defaults to config.Load.
	LoadConfig func(path string) (*config.Sound, error)
	// Library defaults to clip.NewLibrary().
	Library *clip.Library
}

// Controller owns the clip library, the dispatcher and the key source. All
// transitions are serialized by mu; status callbacks run after it is released.
type Controller struct {
	// OnStatus, when set, receives every status change. It must not block for long.
	OnStatus func(Status)

	opts Options
	lib  *clip.Library
	disp *dispatch.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	sound    *config.Sound
	loadDone chan struct{}
	closed   bool

	// soundTitle mirrors sound.Title() so status emission never takes mu.
	soundTitle atomic.Value
}

func New(opts Options) *Controller {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Library == nil {
		opts.Library = clip.NewLibrary()
	}
	c := &Controller{
		opts: opts,
		lib:  opts.Library,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.lib.SetVolume(clip.FromPercent(opts.Volume))
	c.disp = dispatch.New(c.lib, opts.Output, opts.Workers)
	c.disp.OnDispatch = c.onDispatch
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sound returns the config of the last successful load, or nil.
func (c *Controller) Sound() *config.Sound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sound
}

func (c *Controller) Library() *clip.Library { return c.lib }

// Volume returns the current volume in percent.
func (c *Controller) Volume() float64 {
	return math.Round(c.lib.Volume() * 100)
}

func (c *Controller) Stats() (dispatched, dropped uint64) {
	return c.disp.Dispatched(), c.disp.Dropped()
}

func (c *Controller) emit(s Status) {
	if s.Title == "" {
		s.Title = c.title()
	}
	if c.OnStatus != nil {
		c.OnStatus(s)
	}
}

// Load starts loading the sound pack in the background. Wait blocks until it
// has finished.
func (c *Controller) Load() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == LoadingAudio {
		c.mu.Unlock()
		return clip.ErrLoadInProgress
	}
	wasListening := c.state == Listening
	if wasListening {
		c.disarm()
	}
	c.state = LoadingAudio
	done := make(chan struct{})
	c.loadDone = done
	c.mu.Unlock()

	if wasListening {
		c.emit(Status{State: LoadingAudio, Message: MsgStopped})
	}
	c.emit(Status{State: LoadingAudio, Message: MsgLoading})
	go c.load(done)
	return nil
}

// Reload stops listening and loads the sound pack again.
func (c *Controller) Reload() error {
	log.Info("reloading sound")
	return c.Load()
}

func (c *Controller) load(done chan struct{}) {
	defer close(done)

	sound, err := c.loadSound()
	if err != nil {
		log.Errorf("load failed: %v", err)
		c.mu.Lock()
		c.state = AudioFailed
		c.mu.Unlock()
		c.emit(Status{State: AudioFailed, Message: MsgLoadFailed, Err: err})
		return
	}

	c.mu.Lock()
	c.state = AudioReady
	c.sound = sound
	c.soundTitle.Store(sound.Title())
	autostart := c.opts.Autostart && !c.closed
	c.mu.Unlock()

	log.SessionStart(sound.Path, sound.Title())
	c.emit(Status{State: AudioReady, Message: MsgLoaded})
	if autostart {
		if err := c.Start(); err != nil {
			log.Warnf("autostart: %v", err)
		}
	}
}

func (c *Controller) loadSound() (*config.Sound, error) {
	sound, err := c.opts.LoadConfig(c.opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := c.lib.Load(c.ctx, sound.Sound, sound.Definitions); err != nil {
		return nil, err
	}
	if rec := c.lib.Recording(); rec != nil {
		if err := c.opts.Output.Prepare(rec.Format); err != nil {
			return nil, fmt.Errorf("preparing audio output: %w", err)
		}
	}
	return sound, nil
}

// Wait blocks until the current load attempt has finished or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.loadDone
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start arms the dispatcher and the key source. It is rejected while the
// sound is loading or after a failed load; the source stays disarmed then.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.state {
	case Listening:
		c.mu.Unlock()
		return nil
	case LoadingAudio:
		c.mu.Unlock()
		c.emit(Status{State: LoadingAudio, Message: MsgStillLoading})
		return ErrStillLoading
	case AudioFailed:
		c.mu.Unlock()
		c.emit(Status{State: AudioFailed, Message: MsgLoadFailed})
		return ErrAudioFailed
	case Idle:
		c.mu.Unlock()
		return ErrNotLoaded
	}

	c.disp.Start(c.ctx)
	if err := c.opts.Source.Start(c.onKey); err != nil {
		c.disp.Stop()
		c.mu.Unlock()
		err = fmt.Errorf("starting key source: %w", err)
		log.Error(err.Error())
		c.emit(Status{State: AudioReady, Message: "Error: " + err.Error(), Err: err})
		return err
	}
	c.state = Listening
	c.mu.Unlock()

	log.Info("listening")
	c.emit(Status{State: Listening, Message: MsgRunning})
	return nil
}

// Stop disarms the key source, then the dispatcher. Stopping a controller
// that is not listening does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != Listening {
		c.mu.Unlock()
		return
	}
	c.disarm()
	c.state = AudioReady
	c.mu.Unlock()

	log.Info("stopped")
	c.emit(Status{State: AudioReady, Message: MsgStopped})
}

// disarm requires mu.
func (c *Controller) disarm() {
	c.opts.Source.Stop()
	c.disp.Stop()
}

func (c *Controller) Toggle() error {
	if c.State() == Listening {
		c.Stop()
		return nil
	}
	return c.Start()
}

// SetVolume applies percent (clamped to 0..100) and returns the applied value.
func (c *Controller) SetVolume(percent float64) float64 {
	v := c.lib.SetVolume(clip.FromPercent(percent))
	applied := math.Round(v * 100)
	c.emit(Status{State: c.State(), Message: fmt.Sprintf("Volume set to %d%%", int(applied))})
	return applied
}

// Close stops listening and waits for a pending load to finish. Start and
// Load return ErrClosed afterwards, including an autostart from that load.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasListening := c.state == Listening
	if wasListening {
		c.disarm()
		c.state = AudioReady
	}
	c.mu.Unlock()

	if wasListening {
		log.Info("stopped")
		c.emit(Status{State: AudioReady, Message: MsgStopped})
	}
	c.cancel()
	_ = c.Wait(context.Background())
	log.SessionEnd(c.Stats())
}

func (c *Controller) title() string {
	t, _ := c.soundTitle.Load().(string)
	return t
}

func (c *Controller) onKey(e keys.Event) {
	c.disp.Enqueue(e)
}

func (c *Controller) onDispatch(req dispatch.Request) {
	if req.Phase != keys.Down {
		return
	}
	c.emit(Status{State: Listening, Message: "Pressed: " + req.Key.String(), Last: &req})
}
