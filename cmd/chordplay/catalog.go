package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cbegin/chordsynth-go"
)

var voicingsCmd = &cobra.Command{
	Use:   "voicings",
	Short: "List available voicings",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, v := range chordsynth.Voicings() {
			fmt.Fprintf(w, "%s\t%s\n", v.Name, v.Description)
		}
		return w.Flush()
	},
}

var qualitiesCmd = &cobra.Command{
	Use:   "qualities",
	Short: "List recognized chord qualities",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "QUALITY\tSUFFIX\tINTERVALS")
		for _, q := range chordsynth.Qualities() {
			suffix := q.Symbol
			if suffix == "" {
				suffix = "(none)"
			}
			iv := make([]string, len(q.Intervals))
			for i, s := range q.Intervals {
				iv[i] = fmt.Sprint(s)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", q.Quality, suffix, strings.Join(iv, " "))
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		if cfg.File != "" {
			fmt.Printf("# %s\n", cfg.File)
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
