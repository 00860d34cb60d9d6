package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

// ffmpeg fallback output format for containers we cannot parse natively (ogg, mp3, ...).
const (
	ffmpegSampleRate = 44100
	ffmpegChannels   = 2
)

// Decode loads the master recording at path. WAV and FLAC are parsed in-process;
// anything else is handed to ffmpeg when it is installed.
func Decode(ctx context.Context, path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()

	magic := make([]byte, 12)
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrDecode, path, err)
	}
	magic = magic[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var rec *Recording
	switch {
	case len(magic) >= 12 && string(magic[0:4]) == "RIFF" && string(magic[8:12]) == "WAVE":
		rec, err = decodeWAV(f)
	case len(magic) >= 4 && string(magic[0:4]) == "fLaC":
		rec, err = decodeFLAC(f)
	default:
		rec, err = decodeFFmpeg(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if len(rec.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s contains no audio", ErrDecode, path)
	}
	return foldChannels(rec), nil
}

func decodeWAV(r io.ReadSeeker) (*Recording, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file", ErrDecode)
	}
	if d.WavAudioFormat == 3 {
		return nil, fmt.Errorf("%w: floating point wav is not supported", ErrDecode)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: wav: %w", ErrDecode, err)
	}
	bitDepth := int(d.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		if bitDepth == 8 {
			// 8-bit wav is unsigned
			s -= 128
		}
		samples[i] = toInt16(int32(s), bitDepth)
	}
	return &Recording{
		Format:  Format{SampleRate: int(d.SampleRate), Channels: int(d.NumChans)},
		Samples: samples,
	}, nil
}

func decodeFLAC(r io.Reader) (*Recording, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: flac: %w", ErrDecode, err)
	}
	defer stream.Close()

	info := stream.Info
	bps := int(info.BitsPerSample)
	channels := int(info.NChannels)
	samples := make([]int16, 0, int(info.NSamples)*channels)
	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: flac frame: %w", ErrDecode, err)
		}
		if len(fr.Subframes) == 0 {
			continue
		}
		n := fr.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for _, sub := range fr.Subframes {
				samples = append(samples, toInt16(sub.Samples[i], bps))
			}
		}
	}
	return &Recording{
		Format:  Format{SampleRate: int(info.SampleRate), Channels: channels},
		Samples: samples,
	}, nil
}

// decodeFFmpeg runs FFmpeg to decode any other container to raw PCM int16 samples.
func decodeFFmpeg(ctx context.Context, path string) (*Recording, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: unsupported format and ffmpeg not found", ErrDecode)
	}
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(ffmpegSampleRate),
		"-ac", fmt.Sprint(ffmpegChannels),
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg decode %s: %w (%s)", ErrDecode, path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return &Recording{
		Format:  Format{SampleRate: ffmpegSampleRate, Channels: ffmpegChannels},
		Samples: BytesToSamples(out),
	}, nil
}

func toInt16(s int32, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(s >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(s << (16 - bitDepth))
	default:
		return int16(s)
	}
}

// foldChannels keeps the first two channels of wide layouts.
func foldChannels(rec *Recording) *Recording {
	ch := rec.Format.Channels
	if ch <= MaxChannels {
		return rec
	}
	frames := rec.Frames()
	out := make([]int16, frames*MaxChannels)
	for i := 0; i < frames; i++ {
		out[i*2] = rec.Samples[i*ch]
		out[i*2+1] = rec.Samples[i*ch+1]
	}
	return &Recording{Format: Format{SampleRate: rec.Format.SampleRate, Channels: MaxChannels}, Samples: out}
}
