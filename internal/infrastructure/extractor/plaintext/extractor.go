package plaintext

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract reads the document line by line and joins the lines with single spaces.
func (e *Extractor) Extract(ctx context.Context, doc *domain.SourceDocument) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	return JoinLines(reader, doc.Filename)
}

// JoinLines concatenates every line of r with a separating space and trims the result.
func JoinLines(r io.Reader, name string) (string, error) {
	br := bufio.NewReader(r)
	var b strings.Builder
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if !utf8.ValidString(line) {
				return "", domain.WrapError(domain.ErrInvalidInput, "read source document", fmt.Errorf("binary content in %s", name))
			}
			b.WriteString(strings.TrimRight(line, "\r\n"))
			b.WriteByte(' ')
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read source document: %w", err)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
