package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clack/audio"
	"clack/clip"
	"clack/config"
	"clack/encoder"
	"clack/log"
)

var (
	exportDir    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every sliced clip to a file",
	Long: `Load the sound pack, slice it and write each clip as <bucket>.flac or
<bucket>-up.flac (or .wav with --format wav).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sound, err := config.Load(settings.Config)
		if err != nil {
			return err
		}
		n, err := exportClips(cmd.Context(), sound, exportDir, exportFormat)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d clips to %s\n", n, exportDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "output directory")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "flac", "output format: flac or wav")
}

func exportClips(ctx context.Context, sound *config.Sound, dir, format string) (int, error) {
	var write func(path string, c *clip.Clip) error
	switch format {
	case "flac":
		write = writeFlac
	case "wav":
		write = writeWav
	default:
		return 0, fmt.Errorf("unknown format %q (use flac or wav)", format)
	}

	lib := clip.NewLibrary()
	if err := lib.Load(ctx, sound.Sound, sound.Definitions); err != nil {
		return 0, err
	}
	if err := lib.SliceErrors(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dir, err)
	}
	n := 0
	for _, c := range lib.Clips() {
		path := filepath.Join(dir, c.ID.String()+"."+format)
		if err := write(path, c); err != nil {
			return n, fmt.Errorf("writing %s: %w", path, err)
		}
		log.Debugf("exported %s (%v)", path, c.Duration())
		n++
	}
	log.Infof("exported %d clips to %s", n, dir)
	return n, nil
}

func writeFlac(path string, c *clip.Clip) error {
	enc, err := encoder.NewFlac(c.Format.SampleRate, c.Format.Channels)
	if err != nil {
		return err
	}
	if err := enc.EncodeAll(c.Samples()); err != nil {
		return err
	}
	return os.WriteFile(path, enc.Bytes(), 0o644)
}

func writeWav(path string, c *clip.Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, c.Format, c.Samples()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
