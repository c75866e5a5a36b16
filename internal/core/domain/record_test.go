package domain

import (
	"math"
	"testing"
)

func TestEncodeRecordRendersIDAndSortedWords(t *testing.T) {
	rec := EncodeRecord(DefaultGroupKey, Document{ID: "doc1.txt", Words: NewWordSet("c", "a", "b", "a")})
	if rec.GroupKey != "doc" {
		t.Fatalf("expected group key doc, got %q", rec.GroupKey)
	}
	if rec.Value != "doc1.txt\ta,b,c" {
		t.Fatalf("unexpected record value %q", rec.Value)
	}
}

func TestDecodeRecordRoundTripsWords(t *testing.T) {
	doc, err := DecodeRecord(WordSetRecord{GroupKey: "doc", Value: "doc2.txt\tx,y,z"})
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if doc.ID != "doc2.txt" {
		t.Fatalf("expected id doc2.txt, got %q", doc.ID)
	}
	if doc.Words.Len() != 3 || !doc.Words.Contains("y") {
		t.Fatalf("unexpected words %v", doc.Words.Sorted())
	}
}

func TestDecodeRecordEmptyWordListIsEmptySet(t *testing.T) {
	doc, err := DecodeRecord(WordSetRecord{Value: "empty.txt\t"})
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if doc.Words.Len() != 0 {
		t.Fatalf("expected empty set, got %v", doc.Words.Sorted())
	}
}

func TestDecodeRecordRejectsMalformedValues(t *testing.T) {
	for _, value := range []string{"", "no-separator", "\ta,b"} {
		_, err := DecodeRecord(WordSetRecord{Value: value})
		if !IsKind(err, ErrMalformedRecord) {
			t.Fatalf("value %q: expected ErrMalformedRecord, got %v", value, err)
		}
	}
}

func TestSimilarityRecordLabels(t *testing.T) {
	rec := SimilarityRecord{DocumentA: "doc1", DocumentB: "doc2", Score: 2.0 / 3.0}
	if rec.PairKey() != "doc1, doc2" {
		t.Fatalf("unexpected pair key %q", rec.PairKey())
	}
	if rec.ScoreLabel() != "Similarity: 0.67" {
		t.Fatalf("unexpected score label %q", rec.ScoreLabel())
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, ok := range []float64{0, 0.5, 0.99} {
		if err := ValidateThreshold(ok); err != nil {
			t.Fatalf("threshold %v: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []float64{-0.1, 1, 1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := ValidateThreshold(bad); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("threshold %v: expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestReportPath(t *testing.T) {
	if got := ReportPath("r1"); got != "runs/r1/part-r-00000" {
		t.Fatalf("unexpected report path %q", got)
	}
}
