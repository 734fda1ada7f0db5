package main

import (
	"context"
	"errors"
	"os"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"qbank/internal/importer"
	"qbank/internal/manifest"
	"qbank/internal/mongostore"
	"qbank/internal/store"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, manifest.ErrMalformed):
		lines = append(lines,
			"hint: the manifest must be an array of {\"id\", \"tags\", \"path\"} objects.",
			"hint: nothing was imported.",
		)
	case errors.Is(err, importer.ErrFailures):
		lines = append(lines, "hint: failed records are listed above; rerun without --strict to accept partial imports.")
	case errors.Is(err, store.ErrNotFound):
		lines = append(lines, "hint: numeric-looking ids are looked up as numbers; pass --string-id for string ids.")
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		lines = append(lines, "hint: timed out talking to MongoDB; check QBANK_MONGO_URI or raise mongo.timeout_seconds.")
	case errors.Is(err, mongostore.ErrUnavailable) || mongo.IsNetworkError(err):
		lines = append(lines,
			"hint: ensure MongoDB is reachable at QBANK_MONGO_URI (default mongodb://localhost:27017).",
			"hint: use --backend sqlite to import into a local database instead.",
		)
	case errors.Is(err, os.ErrNotExist):
		lines = append(lines, "hint: pass the manifest path as an argument, with --manifest, or via QBANK_MANIFEST.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
