package similarity

import (
	"fmt"

	"github.com/kirillkom/docsim/internal/core/domain"
)

// Group is the set of documents compared jointly in one aggregation pass.
type Group struct {
	Key       string
	Documents []domain.Document

	words int
}

// GroupFault records a group dropped before aggregation.
type GroupFault struct {
	Key string
	Err error
}

// GroupBuffer accumulates routed documents per group key under a memory bound.
// A group that crosses MaxDocuments or MaxWords is faulted: its documents are released
// and every later document routed to it is refused.
type GroupBuffer struct {
	maxDocuments int
	maxWords     int

	groups map[string]*Group
	order  []string
	faults map[string]error
	total  int
}

// NewGroupBuffer creates a buffer. Non-positive limits disable that bound.
func NewGroupBuffer(maxDocuments, maxWords int) *GroupBuffer {
	return &GroupBuffer{
		maxDocuments: maxDocuments,
		maxWords:     maxWords,
		groups:       make(map[string]*Group),
		faults:       make(map[string]error),
	}
}

// Route adds doc to the group chosen by strategy.
func (b *GroupBuffer) Route(strategy GroupingStrategy, doc domain.Document) error {
	return b.Add(strategy.GroupKey(doc), doc)
}

// Add appends doc to the group under key.
func (b *GroupBuffer) Add(key string, doc domain.Document) error {
	if err, faulted := b.faults[key]; faulted {
		return err
	}

	g, ok := b.groups[key]
	if !ok {
		g = &Group{Key: key}
		b.groups[key] = g
		b.order = append(b.order, key)
	}

	if b.maxDocuments > 0 && len(g.Documents)+1 > b.maxDocuments {
		return b.fault(g, fmt.Errorf("group %q: more than %d documents", key, b.maxDocuments))
	}
	if b.maxWords > 0 && g.words+doc.Words.Len() > b.maxWords {
		return b.fault(g, fmt.Errorf("group %q: more than %d words", key, b.maxWords))
	}

	g.Documents = append(g.Documents, doc)
	g.words += doc.Words.Len()
	b.total++
	return nil
}

func (b *GroupBuffer) fault(g *Group, cause error) error {
	err := domain.WrapError(domain.ErrGroupOverflow, "buffer group", cause)
	b.total -= len(g.Documents)
	g.Documents = nil
	g.words = 0
	b.faults[g.Key] = err
	return err
}

// Groups returns the healthy groups in first-seen order.
func (b *GroupBuffer) Groups() []Group {
	out := make([]Group, 0, len(b.order))
	for _, key := range b.order {
		if _, faulted := b.faults[key]; faulted {
			continue
		}
		out = append(out, *b.groups[key])
	}
	return out
}

// Faults returns the groups dropped by the memory bound in first-seen order.
func (b *GroupBuffer) Faults() []GroupFault {
	out := make([]GroupFault, 0, len(b.faults))
	for _, key := range b.order {
		if err, faulted := b.faults[key]; faulted {
			out = append(out, GroupFault{Key: key, Err: err})
		}
	}
	return out
}

// Documents is the number of documents held by healthy groups.
func (b *GroupBuffer) Documents() int { return b.total }
