package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"qbank/internal/config"
	"qbank/internal/importer"
	"qbank/internal/manifest"
	"qbank/internal/store"
)

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		manifestPath string
		workers      int
		verifyImages bool
		baseDir      string
		dryRun       bool
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "import [manifest]",
		Short: "Import images listed in a JSON or YAML manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Manifest
			if manifestPath != "" {
				path = manifestPath
			}
			if len(args) == 1 {
				path = args[0]
			}

			// A malformed manifest aborts before anything is written.
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}

			opts := importer.Options{
				Workers:      cfg.Import.Workers,
				VerifyImages: cfg.Import.VerifyImages,
				BaseDir:      cfg.Import.BaseDir,
				DryRun:       dryRun,
				Logger:       slog.Default().With("manifest", m.Path, "backend", cfg.Backend),
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if cmd.Flags().Changed("verify-images") {
				opts.VerifyImages = verifyImages
			}
			if cmd.Flags().Changed("base-dir") {
				opts.BaseDir = baseDir
			}

			run := importRun{
				entries: m.Entries,
				opts:    opts,
				target:  cfg.Target(),
				json:    *jsonOutput,
				strict:  strict,
			}
			if dryRun {
				return run.execute(cmd.Context(), nil)
			}
			return withStore(cmd.Context(), cfg, func(st store.ImageStore) error {
				return run.execute(cmd.Context(), st)
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest file (default from config)")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultImportWorkers, "concurrent file reads")
	cmd.Flags().BoolVar(&verifyImages, "verify-images", false, "reject files that do not decode as images")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "directory for resolving relative image paths")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read and validate records without writing")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record fails")

	return cmd
}

type importRun struct {
	entries []manifest.Entry
	opts    importer.Options
	target  string
	json    bool
	strict  bool
}

func (r importRun) execute(ctx context.Context, w store.ImageWriter) error {
	var progress progressPrinter
	var observe importer.Observer
	if !r.json {
		if err := writePlain("%s\n", formatStartLine(r.target)); err != nil {
			return err
		}
		observe = progress.observe
	}

	summary, err := importer.New(w, r.opts).Import(ctx, r.entries, observe)
	if err != nil {
		return err
	}
	if progress.err != nil {
		return fmt.Errorf("write progress: %w", progress.err)
	}

	if r.json {
		if err := writeJSON(newImportReport(summary)); err != nil {
			return err
		}
	} else if err := writePlain("%s\n", formatSummaryLine(summary)); err != nil {
		return err
	}

	if r.strict && summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d records failed", importer.ErrFailures, summary.Failed, len(r.entries))
	}
	return nil
}

// progressPrinter writes one line per result and stops at the first write
// error, which is reported once the run finishes.
type progressPrinter struct {
	err error
}

func (p *progressPrinter) observe(r importer.Result) {
	if p.err != nil {
		return
	}
	if err := writePlain("%s\n", formatResultLine(r)); err != nil {
		p.err = err
		slog.Warn("progress output failed; import continues", "error", err)
	}
}
