package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsim/internal/core/similarity"
	"github.com/kirillkom/docsim/internal/core/usecase"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor"
	"github.com/kirillkom/docsim/internal/infrastructure/normalize"
	"github.com/kirillkom/docsim/internal/infrastructure/report"
	"github.com/kirillkom/docsim/internal/infrastructure/storage/localfs"
)

type runOptions struct {
	output         string
	threshold      float64
	grouping       string
	groupKey       string
	groupSeparator string
	workers        int
	minWordLength  int
	maxGroupDocs   int
	maxGroupWords  int
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run INPUT_DIR",
		Short: "Compare every document under a directory",
		Long: `Run reads every file under INPUT_DIR, reduces it to its word set and writes
one line per similar pair:

  doc1.txt, doc2.txt<TAB>Similarity: 0.60

Files that cannot be read as text are skipped. Documents without words take
part in no pair.

Examples:
  docsim run ./corpus
  docsim run ./corpus --threshold 0.8 --output pairs.txt
  docsim run ./tenants --grouping id_prefix`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.SimilarityThreshold = opts.threshold
			}
			if flags.Changed("grouping") {
				cfg.GroupingStrategy = opts.grouping
			}
			if flags.Changed("group-key") {
				cfg.GroupKey = opts.groupKey
			}
			if flags.Changed("group-separator") {
				cfg.GroupPrefixSeparator = opts.groupSeparator
			}
			if flags.Changed("workers") {
				cfg.AggregationWorkers = opts.workers
			}
			if flags.Changed("min-word-length") {
				cfg.MinWordLength = opts.minWordLength
			}
			if flags.Changed("max-group-documents") {
				cfg.MaxGroupDocuments = opts.maxGroupDocs
			}
			if flags.Changed("max-group-words") {
				cfg.MaxGroupWords = opts.maxGroupWords
			}

			grouping, err := cfg.Grouping()
			if err != nil {
				return err
			}
			agg, err := similarity.NewAggregator(similarity.Config{
				Threshold:         cfg.SimilarityThreshold,
				Grouping:          grouping,
				Workers:           cfg.AggregationWorkers,
				MaxGroupDocuments: cfg.MaxGroupDocuments,
				MaxGroupWords:     cfg.MaxGroupWords,
			})
			if err != nil {
				return err
			}

			if info, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("open input dir: %w", err)
			} else if !info.IsDir() {
				return fmt.Errorf("open input dir: %s is not a directory", args[0])
			}
			input, err := localfs.New(args[0])
			if err != nil {
				return fmt.Errorf("open input dir: %w", err)
			}

			batch := usecase.NewBatchUseCase(
				input,
				extractor.NewDispatcher(input),
				normalize.NewNormalizer(cfg.MinWordLength),
				agg,
				report.NewTextWriter(),
				cfg.AggregationWorkers,
			)
			run := func(out io.Writer) error {
				result, err := batch.Run(cmd.Context(), "", out)
				slog.Info(
					"batch_finished",
					"documents", result.Stats.Documents,
					"empty", result.Empty,
					"skipped", result.Skipped,
					"groups", result.Stats.Groups,
					"faulted_groups", result.Stats.FaultedGroups,
					"compared", result.Stats.Compared,
					"emitted", result.Stats.Emitted,
				)
				return err
			}

			if opts.output == "" {
				return run(cmd.OutOrStdout())
			}
			f, err := os.Create(opts.output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			return writeOutput(f, run)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "emit pairs scoring strictly above this value")
	cmd.Flags().StringVar(&opts.grouping, "grouping", "", "grouping strategy: constant or id_prefix")
	cmd.Flags().StringVar(&opts.groupKey, "group-key", "", "constant group key, or id_prefix fallback key")
	cmd.Flags().StringVar(&opts.groupSeparator, "group-separator", "", "id_prefix separator")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel workers (0 = number of CPUs)")
	cmd.Flags().IntVar(&opts.minWordLength, "min-word-length", 0, "drop words shorter than this")
	cmd.Flags().IntVar(&opts.maxGroupDocs, "max-group-documents", 0, "documents one group may hold (0 = unbounded)")
	cmd.Flags().IntVar(&opts.maxGroupWords, "max-group-words", 0, "words one group may hold (0 = unbounded)")
	return cmd
}

// writeOutput runs write against out, then closes it. A failed close fails the
// command even when every write succeeded.
func writeOutput(out io.WriteCloser, write func(io.Writer) error) error {
	err := write(out)
	if closeErr := out.Close(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("close output: %w", closeErr))
	}
	return err
}
