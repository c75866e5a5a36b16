package domain

import (
	"sort"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusEmpty      DocumentStatus = "empty"
	StatusFailed     DocumentStatus = "failed"
)

// SourceDocument is the metadata of an uploaded file awaiting or past the transform stage.
type SourceDocument struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	WordCount   int            `json:"word_count"`
	GroupKey    string         `json:"group_key,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Document is one comparison unit: an identity and its normalized word set.
type Document struct {
	ID    string
	Words WordSet
}

// WordSet is an immutable set of normalized tokens.
type WordSet struct {
	m map[string]struct{}
}

func NewWordSet(words ...string) WordSet {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return WordSet{m: m}
}

func (s WordSet) Len() int { return len(s.m) }

func (s WordSet) Contains(word string) bool {
	_, ok := s.m[word]
	return ok
}

// Each calls fn for every word until fn returns false. Iteration order is unspecified.
func (s WordSet) Each(fn func(word string) bool) {
	for w := range s.m {
		if !fn(w) {
			return
		}
	}
}

// Sorted returns the words in lexical order.
func (s WordSet) Sorted() []string {
	out := make([]string, 0, len(s.m))
	for w := range s.m {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// String renders the set as a comma-separated word list.
func (s WordSet) String() string {
	return strings.Join(s.Sorted(), ",")
}
