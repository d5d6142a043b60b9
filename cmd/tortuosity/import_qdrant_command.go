package main

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tortuosity/internal/embedding/memory"
)

func newImportQdrantCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		recreate bool
	)
	cmd := &cobra.Command{
		Use:   "import-qdrant <vector-file>",
		Short: "Upload a GloVe or word2vec text file into the configured Qdrant collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Embeddings.Qdrant == nil {
				return errors.New("embeddings.qdrant config missing")
			}
			log := ctx.logger()
			start := time.Now()
			table, err := memory.LoadFile(memory.Config{Path: args[0], Limit: limit})
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"vectors": table.Len(), "dimension": table.Dimension()}).Info("vector file loaded")

			q := newQdrant(cfg.Embeddings.Qdrant, log)
			if recreate {
				if err := q.Clear(cmd.Context()); err != nil {
					return err
				}
			}
			if err := q.Import(cmd.Context(), table); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"points":      table.Len(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("import complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Import only the first N vectors")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop the collection before importing")
	return cmd
}
