// Package importer upserts manifest records into an image store, one
// independent result per record.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"qbank/internal/imagecheck"
	"qbank/internal/manifest"
	"qbank/internal/models"
	"qbank/internal/store"
)

const windowPerWorker = 4

// ErrFailures reports that a run completed with at least one failed record.
var ErrFailures = errors.New("import finished with failures")

// Options controls an import run.
type Options struct {
	// Workers bounds concurrent file reads. Values below 2 read sequentially.
	Workers      int
	VerifyImages bool
	// BaseDir resolves relative record paths. Empty means the working directory.
	BaseDir string
	DryRun  bool
	Logger  *slog.Logger
}

// Result is the outcome of importing one manifest entry.
type Result struct {
	Index int
	ID    models.ID
	Path  string
	Raw   string
	Size  int
	Err   error
}

// OK reports whether the record was imported.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID    string
	Imported int
	Failed   int
	DryRun   bool
	Results  []Result
}

func (s *Summary) add(r Result) {
	if r.OK() {
		s.Imported++
	} else {
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// Observer receives each result in manifest order as soon as it is final.
type Observer func(Result)

// Importer reads images referenced by manifest records and upserts them.
type Importer struct {
	store    store.ImageWriter
	opts     Options
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// New constructs an Importer writing to w.
func New(w store.ImageWriter, opts Options) *Importer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: w, opts: opts, logger: logger, readFile: os.ReadFile}
}

type prepared struct {
	result Result
	doc    *models.ImageDocument
}

// Import processes every entry. A failing record never stops the run; only
// context cancellation does, in which case the partial summary is returned
// with the context error.
func (i *Importer) Import(ctx context.Context, entries []manifest.Entry, observe Observer) (Summary, error) {
	summary := Summary{
		RunID:   ulid.Make().String(),
		DryRun:  i.opts.DryRun,
		Results: make([]Result, 0, len(entries)),
	}
	log := i.logger.With("run_id", summary.RunID)
	log.Info("import started", "records", len(entries), "workers", i.workers(), "dry_run", i.opts.DryRun)

	window := 1
	if i.workers() > 1 {
		window = i.workers() * windowPerWorker
	}

	for start := 0; start < len(entries); start += window {
		if err := ctx.Err(); err != nil {
			log.Warn("import cancelled", "processed", len(summary.Results), "error", err)
			return summary, err
		}
		end := min(start+window, len(entries))
		batch := i.prepareBatch(entries[start:end])

		for _, p := range batch {
			if err := ctx.Err(); err != nil {
				log.Warn("import cancelled", "processed", len(summary.Results), "error", err)
				return summary, err
			}
			res := p.result
			if res.Err == nil && !i.opts.DryRun {
				res.Err = i.store.UpsertImage(ctx, p.doc)
			}
			if res.Err != nil {
				log.Debug("record failed", "index", res.Index, "record", res.Raw, "error", res.Err)
			} else {
				log.Debug("record imported", "index", res.Index, "id", res.ID.String(), "path", res.Path, "size", humanize.Bytes(uint64(res.Size)))
			}
			summary.add(res)
			if observe != nil {
				observe(res)
			}
		}
	}

	log.Info("import finished", "imported", summary.Imported, "failed", summary.Failed)
	return summary, nil
}

func (i *Importer) workers() int {
	if i.opts.Workers < 1 {
		return 1
	}
	return i.opts.Workers
}

func (i *Importer) prepareBatch(entries []manifest.Entry) []prepared {
	out := make([]prepared, len(entries))
	if len(entries) == 1 || i.workers() == 1 {
		for idx, entry := range entries {
			out[idx] = i.prepare(entry)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(i.workers())
	for idx, entry := range entries {
		idx, entry := idx, entry
		g.Go(func() error {
			out[idx] = i.prepare(entry)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// prepare decodes the entry, reads the image and builds the document.
func (i *Importer) prepare(entry manifest.Entry) prepared {
	res := Result{Index: entry.Index, Raw: entry.String()}

	rec, err := entry.Decode()
	if err != nil {
		res.Err = err
		return prepared{result: res}
	}
	res.ID = rec.ID
	res.Path = rec.Path

	data, err := i.readFile(i.resolve(rec.Path))
	if err != nil {
		res.Err = err
		return prepared{result: res}
	}
	res.Size = len(data)

	if i.opts.VerifyImages {
		if !imagecheck.SupportedExtension(rec.Path) {
			i.logger.Warn("unrecognized image extension", "path", rec.Path)
		}
		info, err := imagecheck.Check(data)
		if err != nil {
			res.Err = fmt.Errorf("%s: %w", rec.Path, err)
			return prepared{result: res}
		}
		i.logger.Debug("image verified", "path", rec.Path, "width", info.Width, "height", info.Height)
	}

	return prepared{result: res, doc: models.NewImageDocument(rec, data)}
}

func (i *Importer) resolve(path string) string {
	if i.opts.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(i.opts.BaseDir, path)
}
