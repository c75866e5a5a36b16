package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docsim/internal/core/domain"
	"github.com/kirillkom/docsim/internal/core/ports"
)

const sourcePrefix = "sources/"

// IngestDocumentUseCase accepts source documents for the transform stage.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores body, records the document as uploaded and announces it to the
// transform stage. The document keeps its original base name, which becomes its
// id in similarity output. If the announcement fails the document is marked failed.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.SourceDocument, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}

	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("%s is empty", name))
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	doc := &domain.SourceDocument{
		ID:       uuid.NewString(),
		Filename: name,
		MimeType: detectMimeType(name, mimeType),
		Status:   domain.StatusUploaded,
	}
	doc.StoragePath = path.Join(strings.TrimSuffix(sourcePrefix, "/"), doc.ID+"_"+sanitizeFilename(name))
	doc.CreatedAt = uc.now()
	doc.UpdatedAt = doc.CreatedAt

	if err := uc.storage.Save(ctx, doc.StoragePath, br); err != nil {
		return nil, fmt.Errorf("save source document: %w", err)
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		publishErr := fmt.Errorf("publish ingestion event: %w", err)
		if markErr := uc.repo.UpdateStatus(context.WithoutCancel(ctx), doc.ID, domain.StatusFailed, publishErr.Error()); markErr != nil {
			slog.Error("document_mark_failed_error", "document_id", doc.ID, "error", markErr)
		}
		return nil, publishErr
	}

	slog.Info("document_uploaded", "document_id", doc.ID, "filename", doc.Filename, "mime_type", doc.MimeType)
	return doc, nil
}

// detectMimeType prefers the client's media type and falls back to the extension.
func detectMimeType(filename, declared string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return strings.TrimSpace(declared)
}

// sanitizeFilename keeps storage keys to [A-Za-z0-9._-].
func sanitizeFilename(name string) string {
	out := strings.Map(func(r rune) rune {
		if r < 0x80 && (r == '.' || r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return r
		}
		return '_'
	}, filepath.Base(name))
	if strings.Trim(out, ".") == "" {
		return "document.bin"
	}
	return out
}
