//go:build !linux

package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat Format
)

type otoOutput struct{}

func NewOutput() (Output, error) {
	return otoOutput{}, nil
}

func (otoOutput) Prepare(f Format) error {
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if f != otoFormat {
			return fmt.Errorf("oto: device already open as %s, cannot reopen as %s", otoFormat, f)
		}
		return nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("oto init: %w", err)
	}
	<-ready
	otoCtx = ctx
	otoFormat = f
	return nil
}

func (o otoOutput) Play(pcm []byte, f Format, gain float64) error {
	if err := o.Prepare(f); err != nil {
		return err
	}
	otoMu.Lock()
	ctx := otoCtx
	otoMu.Unlock()

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(gain)
	player.Play()
	for player.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	return player.Close()
}

func (otoOutput) Close() {}
