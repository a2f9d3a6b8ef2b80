package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/logger"
	"github.com/cbegin/chordsynth-go/internal/sequencer"
	"github.com/cbegin/chordsynth-go/internal/synth"
)

const EnvPrefix = "CHORDSYNTH"

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Playback synth.Options  `mapstructure:"playback" yaml:"playback"`
	Sequence SequenceConfig `mapstructure:"sequence" yaml:"sequence"`
	Log      logger.Config  `mapstructure:"log" yaml:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

type AudioConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "auto", "ebiten", "beep", "offline"
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
}

type SequenceConfig struct {
	// BPM takes precedence over ChordSeconds when positive.
	BPM          float64 `mapstructure:"bpm" yaml:"bpm"`
	ChordSeconds float64 `mapstructure:"chord_seconds" yaml:"chord_seconds"`
	Loop         bool    `mapstructure:"loop" yaml:"loop"`
}

func (s SequenceConfig) Timing() sequencer.Timing {
	return sequencer.Timing{
		BPM:           s.BPM,
		ChordDuration: time.Duration(s.ChordSeconds * float64(time.Second)),
	}
}

func Default() Config {
	return Config{
		Audio: AudioConfig{
			Backend:    audio.BackendAuto,
			SampleRate: audio.DefaultSampleRate,
		},
		Playback: synth.DefaultOptions(),
		Sequence: SequenceConfig{
			ChordSeconds: sequencer.DefaultChordDuration.Seconds(),
		},
		Log: logger.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)

	v.SetDefault("playback.octave", d.Playback.Octave)
	v.SetDefault("playback.waveform", string(d.Playback.Waveform))
	v.SetDefault("playback.volume", d.Playback.Volume)
	v.SetDefault("playback.attack", d.Playback.Attack)
	v.SetDefault("playback.decay", d.Playback.Decay)
	v.SetDefault("playback.sustain", d.Playback.Sustain)
	v.SetDefault("playback.release", d.Playback.Release)
	v.SetDefault("playback.voicing", d.Playback.Voicing)
	v.SetDefault("playback.filter_cutoff", d.Playback.FilterCutoff)
	v.SetDefault("playback.filter_q", d.Playback.FilterQ)

	v.SetDefault("sequence.bpm", d.Sequence.BPM)
	v.SetDefault("sequence.chord_seconds", d.Sequence.ChordSeconds)
	v.SetDefault("sequence.loop", d.Sequence.Loop)

	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
}

// DefaultPath is where Load looks when no file is given.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "chordsynth.yaml")
}

// Load reads configFile, or DefaultPath when it is empty and exists, and
// applies CHORDSYNTH_* environment overrides (CHORDSYNTH_PLAYBACK_VOLUME
// for playback.volume). An explicitly named file must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := configFile
	if file == "" {
		if _, err := os.Stat(DefaultPath()); err == nil {
			file = DefaultPath()
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = file
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d outside 8000..192000", c.Audio.SampleRate))
	}
	known := false
	for _, b := range audio.Backends() {
		if strings.EqualFold(c.Audio.Backend, b) || strings.EqualFold(c.Audio.Backend, "none") {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("audio.backend %q must be one of %s", c.Audio.Backend, strings.Join(audio.Backends(), ", ")))
	}
	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if c.Sequence.BPM < 0 || (c.Sequence.BPM == 0 && !(c.Sequence.ChordSeconds > 0)) {
		errs = append(errs, fmt.Errorf("sequence needs a positive bpm or chord_seconds"))
	}
	return errors.Join(errs...)
}
