package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtding233/techdraw/internal/session"
)

type oddsFlags struct {
	save     string
	obtained []string
	skipped  []string
	scalars  map[string]string
	area     string
	top      int
	all      bool
	timeout  time.Duration
}

func newOddsCmd(opts *options) *cobra.Command {
	var fl oddsFlags
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Print draw weights and hit chances per area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), fl.timeout)
			defer cancel()
			items, err := odds(ctx, opts, fl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderOdds(items, fl.area, fl.top))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.save, "save", "", "save archive to import first")
	f.StringSliceVar(&fl.obtained, "obtained", nil, "items to mark obtained, on top of any save")
	f.StringSliceVar(&fl.skipped, "skipped", nil, "items skipped last round")
	f.StringToStringVar(&fl.scalars, "scalar", nil, "scalar inputs, e.g. colonies=6")
	f.StringVar(&fl.area, "area", "", "only show this area")
	f.IntVar(&fl.top, "top", 10, "rows per area (0 for all)")
	f.BoolVar(&fl.all, "all", false, "include items that cannot be drawn")
	f.DurationVar(&fl.timeout, "timeout", 30*time.Second, "give up waiting for the estimate after this long")
	return cmd
}

func odds(ctx context.Context, opts *options, fl oddsFlags) ([]session.ItemView, error) {
	cat, params, err := opts.load()
	if err != nil {
		return nil, err
	}
	s := session.New(cat, params, nil, opts.logger)
	defer s.Close()

	if fl.save != "" {
		data, err := os.ReadFile(fl.save)
		if err != nil {
			return nil, err
		}
		if _, err := s.Import(ctx, data); err != nil {
			return nil, fmt.Errorf("import %s: %w", fl.save, err)
		}
	}
	for _, id := range fl.obtained {
		if err := s.SetObtained(ctx, id, true); err != nil {
			return nil, err
		}
	}
	for _, id := range fl.skipped {
		if err := s.ToggleSkipped(ctx, id); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(fl.scalars))
	for k := range fl.scalars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := strconv.ParseFloat(fl.scalars[k], 64)
		if err != nil {
			return nil, fmt.Errorf("scalar %s: %w", k, err)
		}
		if err := s.SetScalar(ctx, k, v); err != nil {
			return nil, err
		}
	}
	if err := s.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for hit chances: %w", err)
	}

	items := s.Items()
	if !fl.all {
		drawable := items[:0]
		for _, v := range items {
			if v.Weight > 0 {
				drawable = append(drawable, v)
			}
		}
		items = drawable
	}
	return items, nil
}
