package similarity

import (
	"testing"

	"github.com/kirillkom/docsim/internal/core/domain"
)

func TestGroupBufferKeepsArrivalOrder(t *testing.T) {
	buf := NewGroupBuffer(0, 0)
	if err := buf.Add("k", doc("second", "a")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := buf.Add("k", doc("first", "b")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	groups := buf.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Documents[0].ID != "second" || groups[0].Documents[1].ID != "first" {
		t.Fatalf("arrival order not kept: %+v", groups[0].Documents)
	}
	if buf.Documents() != 2 {
		t.Fatalf("expected 2 documents, got %d", buf.Documents())
	}
}

func TestGroupBufferWordBoundFaultsGroup(t *testing.T) {
	buf := NewGroupBuffer(0, 3)
	if err := buf.Add("k", doc("one", "a", "b")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := buf.Add("k", doc("two", "c", "d")); !domain.IsKind(err, domain.ErrGroupOverflow) {
		t.Fatalf("expected ErrGroupOverflow, got %v", err)
	}
	// A faulted group refuses later documents even when they would fit.
	if err := buf.Add("k", doc("three")); !domain.IsKind(err, domain.ErrGroupOverflow) {
		t.Fatalf("expected faulted group to refuse documents, got %v", err)
	}

	if len(buf.Groups()) != 0 {
		t.Fatalf("faulted group must not be returned as healthy")
	}
	faults := buf.Faults()
	if len(faults) != 1 || faults[0].Key != "k" {
		t.Fatalf("unexpected faults %+v", faults)
	}
	if buf.Documents() != 0 {
		t.Fatalf("expected released documents, got %d", buf.Documents())
	}
}

func TestGroupBufferRouteUsesStrategy(t *testing.T) {
	buf := NewGroupBuffer(0, 0)
	strategy := IDPrefixGroup{Separator: "/", Fallback: "misc"}
	if err := buf.Route(strategy, doc("team/a.txt", "x")); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if err := buf.Route(strategy, doc("b.txt", "x")); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	groups := buf.Groups()
	if len(groups) != 2 || groups[0].Key != "team" || groups[1].Key != "misc" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestParseGrouping(t *testing.T) {
	s, err := ParseGrouping("", "", "")
	if err != nil {
		t.Fatalf("ParseGrouping() error = %v", err)
	}
	if s.Name() != StrategyConstant || s.GroupKey(doc("any")) != domain.DefaultGroupKey {
		t.Fatalf("unexpected default strategy %s -> %s", s.Name(), s.GroupKey(doc("any")))
	}

	s, err = ParseGrouping("ID_PREFIX", "rest", ":")
	if err != nil {
		t.Fatalf("ParseGrouping() error = %v", err)
	}
	if s.Name() != StrategyIDPrefix {
		t.Fatalf("expected id_prefix, got %s", s.Name())
	}
	if got := s.GroupKey(doc("tenant:file")); got != "tenant" {
		t.Fatalf("expected tenant, got %q", got)
	}
	if got := s.GroupKey(doc("file")); got != "rest" {
		t.Fatalf("expected fallback rest, got %q", got)
	}

	if _, err := ParseGrouping("minhash", "", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
