package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go"
	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/config"
	"github.com/cbegin/chordsynth-go/internal/logger"
)

var (
	cfg  *config.Config
	zlog = zap.NewNop()

	cfgFile     string
	verbose     bool
	backend     string
	octave      int
	voicingName string
	waveform    string
	volume      float64
)

var rootCmd = &cobra.Command{
	Use:   "chordplay",
	Short: "Play, render and export chord progressions",
	Long: `chordplay turns chord symbols such as Cm7 or F#maj9 into sound.

Chords can be played live through the system audio device, rendered to a
WAV file, or exported as a standard MIDI file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		applyFlagOverrides(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zlog.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/chordsynth.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "audio backend: auto|ebiten|beep|offline")
	rootCmd.PersistentFlags().IntVar(&octave, "octave", 4, "base octave (4 = middle C)")
	rootCmd.PersistentFlags().StringVar(&voicingName, "voicing", "", "voicing name (see 'chordplay voicings')")
	rootCmd.PersistentFlags().StringVar(&waveform, "waveform", "", waveformUsage())
	rootCmd.PersistentFlags().Float64Var(&volume, "volume", 0, "peak volume 0..1")

	rootCmd.AddCommand(chordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(voicingsCmd)
	rootCmd.AddCommand(qualitiesCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(midiCmd)
	rootCmd.AddCommand(configCmd)
}

// applyFlagOverrides copies explicitly set persistent flags over the config.
func applyFlagOverrides(cmd *cobra.Command) {
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	if changed("backend") {
		cfg.Audio.Backend = backend
	}
	if changed("octave") {
		cfg.Playback.Octave = octave
	}
	if changed("voicing") {
		cfg.Playback.Voicing = voicingName
	}
	if changed("waveform") {
		if w, ok := audio.ParseWaveform(waveform); ok {
			cfg.Playback.Waveform = w
		} else {
			cfg.Playback.Waveform = audio.Waveform(waveform)
		}
	}
	if changed("volume") {
		cfg.Playback.Volume = volume
	}
}

func waveformUsage() string {
	names := make([]string, 0, len(audio.Waveforms()))
	for _, w := range audio.Waveforms() {
		names = append(names, string(w))
	}
	return "oscillator shape: " + strings.Join(names, "|")
}

func setupLogging() error {
	lc := cfg.Log
	if verbose {
		lc.Level = logger.DebugLevel
	}
	l, err := logger.New(lc)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	zlog = l
	return nil
}

// openEngine opens the configured backend and activates it. A device that
// cannot be activated leaves the engine silent with a warning.
func openEngine(loop bool) (*chordsynth.Engine, error) {
	dev, err := audio.Open(cfg.Audio.Backend, cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	e := chordsynth.NewEngine(dev,
		chordsynth.WithLogger(zlog),
		chordsynth.WithDefaults(cfg.Playback),
		chordsynth.WithLoop(loop))
	if err := e.Activate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; continuing without sound\n", err)
	}
	return e, nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
