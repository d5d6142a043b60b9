package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/corpus"
	"tortuosity/internal/domain"
	"tortuosity/internal/report"
)

type analyzeFlags struct {
	format       string
	corpusFormat string
	topN         int
	output       string
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <path|glob>...",
		Short: "Score every document and print a corpus report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, rep, err := runAnalysis(cmd.Context(), ctx, args, flags)
			if err != nil {
				return err
			}
			format := ctx.config.Report.Format
			if flags.format != "" {
				format = flags.format
			}
			var out io.Writer = cmd.OutOrStdout()
			if flags.output != "" {
				f, err := os.Create(flags.output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return report.Write(out, format, batch, rep)
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Report format: table, csv, markdown or json (overrides report.format)")
	cmd.Flags().StringVar(&flags.corpusFormat, "corpus-format", "", "Input format: blocks, files or json (overrides corpus.format)")
	cmd.Flags().IntVarP(&flags.topN, "top", "n", -1, "Number of most and least tortuous documents to list (overrides report.top_n)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

// runAnalysis loads the corpus, scores it and builds the report. Documents
// rejected by the loader are reported alongside those rejected by the service.
func runAnalysis(goCtx context.Context, ctx *commandContext, paths []string, flags analyzeFlags) (domain.Batch, aggregate.Report, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return domain.Batch{}, aggregate.Report{}, err
	}
	format := cfg.Corpus.Format
	if flags.corpusFormat != "" {
		format = flags.corpusFormat
	}
	c, err := corpus.Load(paths, corpus.Options{Format: format, RequireHeader: cfg.Corpus.RequireHeader})
	if err != nil {
		return domain.Batch{}, aggregate.Report{}, fmt.Errorf("load corpus: %w", err)
	}
	ctx.logger().WithField("documents", len(c.Documents)).Info("corpus loaded")

	svc, err := ctx.service()
	if err != nil {
		return domain.Batch{}, aggregate.Report{}, err
	}
	batch, err := svc.Analyze(goCtx, c.Documents)
	if err != nil {
		return domain.Batch{}, aggregate.Report{}, err
	}
	batch.Failed = append(c.Failed, batch.Failed...)

	opts := reportOptions(cfg.Report)
	if flags.topN >= 0 {
		opts.TopN = flags.topN
	}
	return batch, aggregate.Build(batch, opts), nil
}
