// Command capr computes six-context structural profiles for every aptamer
// in a pool, per spec.md §4.9-§4.10.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aptapool/internal/capr"
	"aptapool/internal/caprdriver"
	"aptapool/internal/cmdutil"
	"aptapool/internal/config"
	"aptapool/internal/pool"
	"aptapool/internal/progress"
)

func main() {
	var (
		configPath string
		verbose    bool
		showBar    bool
	)

	root := &cobra.Command{
		Use:   "capr",
		Short: "Compute structural context profiles for a registered aptamer pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose, showBar)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "aptaplex.yaml", "path to project configuration file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().BoolVar(&showBar, "progress", true, "show a terminal progress bar")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, verbose, showBar bool) error {
	log := cmdutil.NewLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("capr: %w", err)
	}
	if !cfg.CapR.Enabled {
		log.Info("capr: disabled in configuration, nothing to do")
		return nil
	}

	p, err := pool.Open(filepath.Join(cfg.ProjectPath, "pooldata"), cfg.Bloom.Capacity, cfg.Bloom.FPRate)
	if err != nil {
		return fmt.Errorf("capr: open pool: %w", err)
	}
	defer p.Close()

	structDir := filepath.Join(cfg.ProjectPath, "structuredata")
	if err := os.MkdirAll(structDir, 0o755); err != nil {
		return fmt.Errorf("capr: create structuredata: %w", err)
	}
	profiles, err := caprdriver.OpenProfileStore(structDir)
	if err != nil {
		return fmt.Errorf("capr: %w", err)
	}
	defer profiles.Close()

	var bar progress.Sink = progress.None
	if showBar {
		bar = progress.NewBar(int64(p.Size()))
		defer bar.Finish()
	}

	sink := profiles.Sink()
	driver := caprdriver.New(caprdriver.Config{
		MaxThreads: cfg.MaxThreads,
		Engine: capr.Config{
			TemperatureC:        cfg.CapR.TemperatureC,
			MaxSpan:             cfg.CapR.MaxSpan,
			MaxInteriorUnpaired: cfg.CapR.MaxInteriorUnpaired,
		},
	})
	if err := driver.Run(p, func(r caprdriver.Result) {
		sink(r)
		bar.Add(1)
	}); err != nil {
		return fmt.Errorf("capr: %w", err)
	}

	if err := profiles.Flush(); err != nil {
		return fmt.Errorf("capr: flush: %w", err)
	}
	log.WithField("count", driver.Progress).Info("capr: run complete")
	return nil
}
