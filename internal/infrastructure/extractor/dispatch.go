// Package extractor picks the text extractor for a source document by extension or MIME type.
package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/docsim/internal/infrastructure/extractor/xlsx"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Dispatcher struct {
	text  ports.TextExtractor
	pdf   ports.TextExtractor
	sheet ports.TextExtractor
}

func NewDispatcher(storage ports.ObjectStorage) *Dispatcher {
	return &Dispatcher{
		text:  plaintext.NewExtractor(storage),
		pdf:   pdf.NewExtractor(storage),
		sheet: xlsx.NewExtractor(storage),
	}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.SourceDocument) (string, error) {
	return d.pick(doc).Extract(ctx, doc)
}

// Everything that is not recognizably PDF or XLSX is read as plain text.
func (d *Dispatcher) pick(doc *domain.SourceDocument) ports.TextExtractor {
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	switch {
	case mime == mimePDF:
		return d.pdf
	case mime == mimeXLSX:
		return d.sheet
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return d.pdf
	case ".xlsx", ".xlsm":
		return d.sheet
	default:
		return d.text
	}
}
