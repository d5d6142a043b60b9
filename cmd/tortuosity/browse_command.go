package main

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tortuosity/internal/tui"
)

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	flags := analyzeFlags{topN: -1}
	cmd := &cobra.Command{
		Use:   "browse <path|glob>...",
		Short: "Score a corpus and browse the ranked results interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return errors.New("browse needs an interactive terminal; use analyze instead")
			}
			batch, rep, err := runAnalysis(cmd.Context(), ctx, args, flags)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(batch, rep), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&flags.corpusFormat, "corpus-format", "", "Input format: blocks, files or json (overrides corpus.format)")
	return cmd
}
