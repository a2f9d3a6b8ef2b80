package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go"
)

var chordDuration time.Duration

var chordCmd = &cobra.Command{
	Use:   "chord <symbol>",
	Short: "Play a single chord",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(false)
		if err != nil {
			return err
		}
		defer e.Close()

		nodes, err := e.PlayDefault(args[0], chordDuration)
		if err != nil {
			return err
		}
		zlog.Info("chord playing", zap.String("symbol", args[0]), zap.Int("nodes", len(nodes)))

		ctx, cancel := interruptContext()
		defer cancel()
		select {
		case <-ctx.Done():
			e.StopAll()
		case <-time.After(chordDuration):
		}
		return nil
	},
}

var (
	playBPM   float64
	playLoop  bool
	playLoops int
)

var playCmd = &cobra.Command{
	Use:   "play <symbol>...",
	Short: "Play a chord progression",
	Long: `Play a chord progression, one chord per beat at --bpm, or one chord
every sequence.chord_seconds from the config when no tempo is set.

With --loop the progression repeats; --loops stops after N passes.`,
	Example: "  chordplay play C Am F G --bpm 90 --voicing open",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timing := cfg.Sequence.Timing()
		if cmd.Flags().Changed("bpm") {
			timing.BPM = playBPM
		}
		loop := cfg.Sequence.Loop || playLoop

		e, err := openEngine(loop)
		if err != nil {
			return err
		}
		defer e.Close()

		events := e.Watch()
		p, err := e.PlayProgressionDefault(args, timing)
		if err != nil {
			return err
		}
		fmt.Printf("playing %d chords, %v each\n", len(args), timing.Duration())

		ctx, cancel := interruptContext()
		defer cancel()
		loopCount := 0
		handle := func(ev chordsynth.PlaybackEvent) {
			switch ev.Kind {
			case chordsynth.EventChordStarted:
				fmt.Printf("  %s\n", args[ev.Index])
			case chordsynth.EventLoopCompleted:
				loopCount++
				fmt.Printf("loop %d completed\n", loopCount)
				if playLoops > 0 && loopCount >= playLoops {
					p.Stop()
				}
			case chordsynth.EventPlaybackEnded:
				fmt.Println("playback completed")
			}
		}
		for {
			select {
			case <-ctx.Done():
				p.Stop()
				return nil
			case <-p.Done():
				// Events are queued before Done closes.
				for {
					select {
					case ev := <-events:
						handle(ev)
					default:
						return nil
					}
				}
			case ev := <-events:
				handle(ev)
			}
		}
	},
}

func init() {
	chordCmd.Flags().DurationVarP(&chordDuration, "duration", "d", 2*time.Second, "how long the chord sounds")

	playCmd.Flags().Float64Var(&playBPM, "bpm", 0, "tempo, one chord per beat (overrides config)")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "repeat the progression")
	playCmd.Flags().IntVar(&playLoops, "loops", 0, "with --loop, stop after N loops (0 = forever)")
}
