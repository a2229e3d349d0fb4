// Command techdraw inspects research odds offline: it loads the catalog and
// config, optionally imports a save, and prints weights and hit chances.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/logging"
)

type options struct {
	configDir string
	profile   string
	catalog   string
	seed      uint64
	verbose   bool

	// resolver defaults to a loader over configDir.
	resolver config.Resolver
	raw      config.RawConfig
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	env, _ := config.ParseEnv()

	root := &cobra.Command{
		Use:           "techdraw",
		Short:         "Research draw odds calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(opts.verbose)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.configDir, "config-dir", env.Dir, "directory holding default.yaml and profiles/")
	f.StringVar(&opts.profile, "profile", env.Profile, "config profile layered over the defaults")
	f.StringVar(&opts.catalog, "catalog", env.Catalog, "directory holding technologies.json")
	f.Uint64Var(&opts.seed, "seed", 0, "fixed estimator seed (0 keeps the configured one)")
	f.BoolVarP(&opts.verbose, "verbose", "v", env.Debug, "debug logging")

	root.AddCommand(newOddsCmd(opts), newExtractCmd(opts), newValidateCmd(opts))
	return root
}

// load resolves the config and reads the catalog. The merged raw config is
// kept on o for commands that report it.
func (o *options) load() (*catalog.Catalog, config.Params, error) {
	var ov config.Overrides
	if o.seed != 0 {
		ov.Seed = &o.seed
	}
	if o.resolver == nil {
		o.resolver = config.NewLoader(o.configDir)
	}
	raw, params, err := o.resolver.Resolve(o.profile, ov)
	if err != nil {
		return nil, config.Params{}, err
	}
	o.raw = raw
	cat, err := catalog.Load(o.catalog)
	if err != nil {
		return nil, config.Params{}, err
	}
	return cat, params, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "techdraw:", err)
		os.Exit(1)
	}
}
