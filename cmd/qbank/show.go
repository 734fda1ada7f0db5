package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"qbank/internal/config"
	"qbank/internal/models"
	"qbank/internal/store"
)

type imageDetail struct {
	ID        models.ID `json:"id"`
	Kind      string    `json:"kind"`
	Tags      []string  `json:"tags"`
	SizeBytes int       `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		stringID bool
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored image document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseIDArg(args[0], stringID)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st store.ImageStore) error {
				doc, err := st.GetImage(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("image %s: %w", id, err)
				}

				if outPath != "" {
					if err := os.WriteFile(outPath, doc.Image, 0o644); err != nil {
						return err
					}
				}

				detail := imageDetail{
					ID:        doc.ID,
					Kind:      string(doc.ID.Kind),
					Tags:      doc.Tags,
					SizeBytes: len(doc.Image),
					SHA256:    doc.SHA256(),
				}
				if *jsonOutput {
					return writeJSON(detail)
				}
				return writeImageDetail(detail)
			})
		},
	}

	cmd.Flags().BoolVar(&stringID, "string-id", false, "treat the id as a string even if it looks numeric")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the image bytes to this file")

	return cmd
}

func writeImageDetail(d imageDetail) error {
	lines := []string{
		fmt.Sprintf("id: %s (%s)", d.ID, d.Kind),
		fmt.Sprintf("size: %s", humanize.Bytes(uint64(d.SizeBytes))),
		fmt.Sprintf("sha256: %s", d.SHA256),
	}
	if len(d.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(d.Tags, ", ")))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func newCountCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count stored image documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st store.ImageStore) error {
				n, err := st.CountImages(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]int64{"count": n})
				}
				return writePlain("%d\n", n)
			})
		},
	}
}
