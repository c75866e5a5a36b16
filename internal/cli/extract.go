package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsim/internal/core/similarity"
	"github.com/kirillkom/docsim/internal/core/usecase"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor"
	"github.com/kirillkom/docsim/internal/infrastructure/normalize"
	"github.com/kirillkom/docsim/internal/infrastructure/report"
	"github.com/kirillkom/docsim/internal/infrastructure/storage/localfs"
)

func newExtractCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the word-set record of one document",
		Long: `Extract prints the record the transform stage produces for FILE:

  <group key><TAB><document id><TAB><word>,<word>,...

Nothing is printed for a document without words.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			grouping, err := cfg.Grouping()
			if err != nil {
				return err
			}
			agg, err := similarity.NewAggregator(similarity.Config{
				Threshold: cfg.SimilarityThreshold,
				Grouping:  grouping,
			})
			if err != nil {
				return err
			}

			abs, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			input, err := localfs.New(filepath.Dir(abs))
			if err != nil {
				return fmt.Errorf("open input dir: %w", err)
			}

			batch := usecase.NewBatchUseCase(
				input,
				extractor.NewDispatcher(input),
				normalize.NewNormalizer(cfg.MinWordLength),
				agg,
				report.NewTextWriter(),
				1,
			)
			rec, ok, err := batch.ExtractRecord(cmd.Context(), filepath.Base(abs))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.GroupKey, rec.Value)
			return err
		},
	}
}
