package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go"
)

var (
	exportOut   string
	exportBPM   float64
	renderPCM16 bool
)

func exportTiming(cmd *cobra.Command) chordsynth.Timing {
	timing := cfg.Sequence.Timing()
	if cmd.Flags().Changed("bpm") {
		timing.BPM = exportBPM
	}
	return timing
}

var renderCmd = &cobra.Command{
	Use:     "render <symbol>...",
	Short:   "Render a progression to a WAV file",
	Example: "  chordplay render Dm7 G7 Cmaj7 --bpm 80 --out ii-V-I.wav",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOut == "" {
			return errors.New("--out is required")
		}
		samples, err := chordsynth.RenderProgression(args, exportTiming(cmd), cfg.Playback, cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		if renderPCM16 {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			if err := chordsynth.WriteWAVPCM16(f, samples, cfg.Audio.SampleRate); err != nil {
				_ = f.Close()
				return fmt.Errorf("write wav: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
		} else {
			wav := chordsynth.EncodeWAVFloat32LE(samples, cfg.Audio.SampleRate, 2)
			if err := os.WriteFile(exportOut, wav, 0o644); err != nil {
				return err
			}
		}
		zlog.Info("rendered", zap.String("file", exportOut), zap.Int("frames", len(samples)/2))
		fmt.Printf("wrote %s (%.2fs)\n", exportOut, float64(len(samples)/2)/float64(cfg.Audio.SampleRate))
		return nil
	},
}

var midiCmd = &cobra.Command{
	Use:   "midi <symbol>...",
	Short: "Export a progression as a standard MIDI file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOut == "" {
			return errors.New("--out is required")
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		if err := chordsynth.ExportMIDI(f, args, exportTiming(cmd), cfg.Playback); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", exportOut)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, midiCmd} {
		c.Flags().StringVarP(&exportOut, "out", "o", "", "output file")
		c.Flags().Float64Var(&exportBPM, "bpm", 0, "tempo, one chord per beat (overrides config)")
	}
	renderCmd.Flags().BoolVar(&renderPCM16, "pcm16", false, "write 16-bit PCM instead of 32-bit float")
}
