package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xtding233/techdraw/internal/projector"
	"github.com/xtding233/techdraw/internal/save"
)

type leaderOut struct {
	ID     string   `yaml:"id"`
	Class  string   `yaml:"class"`
	Traits []string `yaml:"traits,flow"`
}

type extractOut struct {
	Version      string      `yaml:"version,omitempty"`
	Name         string      `yaml:"name,omitempty"`
	Date         string      `yaml:"date,omitempty"`
	Player       string      `yaml:"player"`
	Country      string      `yaml:"country"`
	Ethics       []string    `yaml:"ethics,flow"`
	Authority    string      `yaml:"authority,omitempty"`
	Civics       []string    `yaml:"civics,flow"`
	Origin       string      `yaml:"origin,omitempty"`
	Perks        []string    `yaml:"perks,flow"`
	Traits       []string    `yaml:"traits,flow"`
	Leaders      []leaderOut `yaml:"leaders,omitempty"`
	Colonies     int         `yaml:"colonies"`
	Year         int         `yaml:"year,omitempty"`
	Technologies int         `yaml:"technologies"`

	Facts   []string           `yaml:"facts,omitempty"`
	Scalars map[string]float64 `yaml:"scalars,omitempty"`
}

func newExtractCmd(opts *options) *cobra.Command {
	var project bool
	var maxBytes int64
	cmd := &cobra.Command{
		Use:   "extract <save.sav>",
		Short: "Print what a save archive contributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ex, err := save.ExtractFile(cmd.Context(), data, save.Options{MaxBytes: maxBytes})
			if ex != nil && len(ex.Diagnostics) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), renderDiagnostics(ex.Diagnostics))
			}
			if err != nil {
				return err
			}

			out := extractView(ex)
			if project {
				b := projector.Project(ex, projector.DefaultTables())
				for k := range b.Facts {
					out.Facts = append(out.Facts, k)
				}
				sort.Strings(out.Facts)
				out.Scalars = b.Scalars
				if len(b.Diagnostics) > 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), renderDiagnostics(b.Diagnostics))
				}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			opts.logger.Debug("save extracted", zap.String("player", ex.Player), zap.Int("technologies", len(ex.Technologies)))
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "also print the projected facts and scalars")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", save.DefaultMaxBytes, "gamestate scan limit")
	return cmd
}

func extractView(ex *save.Extraction) extractOut {
	out := extractOut{
		Version:      ex.Version,
		Name:         ex.Name,
		Date:         ex.Date,
		Player:       ex.Player,
		Country:      ex.Country,
		Ethics:       ex.Ethics,
		Authority:    ex.Authority,
		Civics:       ex.Civics,
		Origin:       ex.Origin,
		Perks:        ex.Perks,
		Traits:       ex.Traits,
		Colonies:     ex.Colonies,
		Year:         ex.Year,
		Technologies: len(ex.Technologies),
	}
	for _, l := range ex.Leaders {
		out.Leaders = append(out.Leaders, leaderOut{ID: l.ID, Class: l.Class, Traits: l.Traits})
	}
	return out
}
