package domain

import (
	"errors"
	"strings"
)

// DefaultGroupKey is the routing key shared by every document in the single-group baseline.
const DefaultGroupKey = "doc"

const (
	recordFieldSep = "\t"
	recordWordSep  = ","
)

// WordSetRecord is what the transform stage hands to the aggregation stage.
// Value carries "documentID<TAB>word1,word2,..." exactly as it travels between stages.
type WordSetRecord struct {
	GroupKey string
	Value    string
}

func EncodeRecord(groupKey string, doc Document) WordSetRecord {
	return WordSetRecord{
		GroupKey: groupKey,
		Value:    doc.ID + recordFieldSep + doc.Words.String(),
	}
}

// DecodeRecord parses a record value back into a Document.
// An empty word list decodes to an empty set; a missing separator or id is malformed.
func DecodeRecord(rec WordSetRecord) (Document, error) {
	id, list, ok := strings.Cut(rec.Value, recordFieldSep)
	if !ok {
		return Document{}, WrapError(ErrMalformedRecord, "decode record", errors.New("missing field separator"))
	}
	if id == "" {
		return Document{}, WrapError(ErrMalformedRecord, "decode record", errors.New("empty document id"))
	}

	var words []string
	for _, w := range strings.Split(list, recordWordSep) {
		if w != "" {
			words = append(words, w)
		}
	}
	return Document{ID: id, Words: NewWordSet(words...)}, nil
}
