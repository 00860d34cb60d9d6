//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseOutput struct {
	mu     sync.Mutex
	client *pulse.Client
}

// NewOutput connects to the PulseAudio (or PipeWire-pulse) server. Every Play opens
// its own stream, so overlapping clips are mixed by the server.
func NewOutput() (Output, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("clack"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseOutput{client: c}, nil
}

func (p *pulseOutput) Prepare(f Format) error {
	if f.Channels < 1 || f.Channels > MaxChannels {
		return fmt.Errorf("pulse: unsupported channel count %d", f.Channels)
	}
	return nil
}

func (p *pulseOutput) Play(pcm []byte, f Format, gain float64) error {
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	if c == nil {
		return fmt.Errorf("pulse: output closed")
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos+1 >= len(pcm) {
			return 0, pulse.EndOfData
		}
		n := 0
		for n < len(buf) && pos+1 < len(pcm) {
			buf[n] = int16(binary.LittleEndian.Uint16(pcm[pos:]))
			n++
			pos += 2
		}
		return n, nil
	})

	vol := uint32(float64(proto.VolumeNorm) * gain)
	vols := make(proto.ChannelVolumes, f.Channels)
	for i := range vols {
		vols[i] = vol
	}
	layout := pulse.PlaybackStereo
	if f.Channels == 1 {
		layout = pulse.PlaybackMono
	}
	stream, err := c.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(f.SampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackRawOption(func(s *proto.CreatePlaybackStream) {
			s.ChannelVolumes = vols
		}),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
	return nil
}

func (p *pulseOutput) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
