package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// TextWriter renders one "idA, idB<TAB>Similarity: X.XX" line per pair.
type TextWriter struct{}

func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// Write emits records ordered by pair key. The input slice is not modified.
func (TextWriter) Write(w io.Writer, records []domain.SimilarityRecord) error {
	sorted := make([]domain.SimilarityRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DocumentA != sorted[j].DocumentA {
			return sorted[i].DocumentA < sorted[j].DocumentA
		}
		return sorted[i].DocumentB < sorted[j].DocumentB
	})

	bw := bufio.NewWriter(w)
	for _, rec := range sorted {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", rec.PairKey(), rec.ScoreLabel()); err != nil {
			return fmt.Errorf("write report line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
