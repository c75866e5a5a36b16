package similarity

import (
	"fmt"
	"strings"

	"github.com/kirillkom/docsim/internal/core/domain"
)

const (
	StrategyConstant = "constant"
	StrategyIDPrefix = "id_prefix"
)

// GroupingStrategy assigns each document to exactly one aggregation group.
// Documents with different keys are never compared.
type GroupingStrategy interface {
	Name() string
	GroupKey(doc domain.Document) string
}

// ConstantGroup routes every document to one shared group.
type ConstantGroup struct {
	Key string
}

func (g ConstantGroup) Name() string { return StrategyConstant }

func (g ConstantGroup) GroupKey(domain.Document) string {
	if g.Key == "" {
		return domain.DefaultGroupKey
	}
	return g.Key
}

// IDPrefixGroup buckets documents by the part of their id before the last Separator,
// so "tenant-a/report.txt" and "tenant-a/notes.txt" share the "tenant-a" group.
// Ids without a separator fall into Fallback.
type IDPrefixGroup struct {
	Separator string
	Fallback  string
}

func (g IDPrefixGroup) Name() string { return StrategyIDPrefix }

func (g IDPrefixGroup) GroupKey(doc domain.Document) string {
	sep := g.Separator
	if sep == "" {
		sep = "/"
	}
	if idx := strings.LastIndex(doc.ID, sep); idx > 0 {
		return doc.ID[:idx]
	}
	if g.Fallback == "" {
		return domain.DefaultGroupKey
	}
	return g.Fallback
}

// ParseGrouping builds a strategy from its configured name.
func ParseGrouping(name, key, separator string) (GroupingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyConstant:
		return ConstantGroup{Key: key}, nil
	case StrategyIDPrefix:
		return IDPrefixGroup{Separator: separator, Fallback: key}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse grouping", fmt.Errorf("unknown strategy %q", name))
	}
}
