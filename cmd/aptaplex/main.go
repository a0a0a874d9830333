// Command aptaplex ingests FASTA/FASTQ selection-cycle reads into an
// aptamer pool, per spec.md §4.8.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aptapool-core/thermo"

	"aptapool/internal/aptaplex"
	"aptapool/internal/cmdutil"
	"aptapool/internal/config"
	"aptapool/internal/experiment"
	"aptapool/internal/match"
)

func main() {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "aptaplex",
		Short: "Parse SELEX sequencing reads into an aptamer pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "aptaplex.yaml", "path to project configuration file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// logPrimerTm reports the expected anchor stability of a configured primer
// before parsing begins, so a miscalled config (e.g. a degenerate or
// too-short primer) is visible in the log before reads start failing to match.
func logPrimerTm(log *logrus.Logger, field, seq string) {
	if seq == "" {
		return
	}
	res, err := thermo.SelfDuplexTm(seq, thermo.DefaultSelexTmInput)
	if err != nil {
		log.WithField(field, seq).WithError(err).Warn("aptaplex: could not estimate primer Tm")
		return
	}
	log.WithField(field, seq).WithField("tm_c", res.TmC).Info("aptaplex: configured primer anchor Tm")
}

func run(configPath string, verbose bool) error {
	log := cmdutil.NewLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("aptaplex: %w", err)
	}

	logPrimerTm(log, "primer5", cfg.Primer.Primer5)
	logPrimerTm(log, "primer3", cfg.Primer.Primer3)

	exp, err := experiment.Open(cfg.ProjectPath, cfg.Bloom.Capacity, cfg.Bloom.FPRate)
	if err != nil {
		return fmt.Errorf("aptaplex: open project: %w", err)
	}
	defer exp.Close()

	var barcodes []match.CycleBarcode
	var files []aptaplex.FilePair
	for _, c := range cfg.Cycles {
		if _, err := exp.OpenCycle(c.Round, c.Name, c.Barcode5, c.Barcode3, c.IsControl, c.IsCounter); err != nil {
			return fmt.Errorf("aptaplex: open cycle %s: %w", c.Name, err)
		}
		if c.Barcode5 != "" || c.Barcode3 != "" {
			barcodes = append(barcodes, match.CycleBarcode{
				Round:    c.Round,
				Barcode5: []byte(c.Barcode5),
				Barcode3: []byte(c.Barcode3),
			})
		}
		files = append(files, aptaplex.FilePair{
			Forward: c.Forward,
			Reverse: c.Reverse,
			Round:   c.Round,
		})
	}

	driverCfg := aptaplex.Config{
		Kind:            aptaplex.Kind(cfg.Kind),
		MaxThreads:      cfg.MaxThreads,
		IsPerFile:       len(barcodes) == 0,
		MinOverlap:      cfg.Stitch.MinOverlap,
		MaxMismatchRate: cfg.Stitch.MaxMismatchRate,
		Barcodes:        barcodes,
		Match: match.Config{
			Primer5:          []byte(cfg.Primer.Primer5),
			Primer3:          []byte(cfg.Primer.Primer3),
			Tolerance:        cfg.Primer.Tolerance,
			MaxLeading:       cfg.Primer.MaxLeading,
			MaxTrailing:      cfg.Primer.MaxTrailing,
			MinRandomized:    cfg.Primer.MinRandomized,
			MaxRandomized:    cfg.Primer.MaxRandomized,
			MinMeanQuality:   cfg.Primer.MinMeanQuality,
			BarcodeTolerance: cfg.Primer.Tolerance,
		},
	}

	driver := aptaplex.New(driverCfg, log)
	hist, err := driver.Run(files, exp)
	if err != nil {
		return fmt.Errorf("aptaplex: %w", err)
	}

	if err := exp.Flush(); err != nil {
		return fmt.Errorf("aptaplex: flush: %w", err)
	}

	for reason, count := range hist.Snapshot() {
		log.WithField(reason, count).Info("aptaplex: run complete")
	}
	return nil
}
