package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/diag"
)

func newValidateCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config profile and the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, params, err := opts.load()
			if err != nil {
				return err
			}
			log := crossCheck(cat, params)
			if log.Len() > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), renderDiagnostics(log.Entries()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items in %d areas, max tier %d, config %q\n",
				cat.Len(), len(cat.Areas), cat.MaxTier(), params.Version)
			if opts.raw.Notes != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "notes: %s\n", opts.raw.Notes)
			}
			if strict && log.Count(diag.Warning) > 0 {
				return fmt.Errorf("%d warnings", log.Count(diag.Warning))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings")
	return cmd
}

// crossCheck reports catalog warnings and config entries naming items the
// catalog does not have.
func crossCheck(cat *catalog.Catalog, params config.Params) *diag.Log {
	var log diag.Log
	for _, w := range cat.Warnings {
		log.Warnf("catalog", "%s", w)
	}
	for _, d := range params.Cascade.Derived {
		for _, id := range d.AnyAvailable {
			if _, ok := cat.Item(id); !ok {
				log.Warnf("config", "derived fact %q references unknown item %q", d.Fact, id)
			}
		}
	}
	known := make(map[string]bool, len(cat.Areas))
	for _, a := range cat.Areas {
		known[a] = true
	}
	for area := range params.Cascade.Draws.PerArea {
		if !known[area] {
			log.Warnf("config", "draws.per_area names unknown area %q", area)
		}
	}
	return &log
}
