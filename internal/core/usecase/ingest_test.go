package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/docsim/internal/core/domain"
)

func TestIngestUploadSuccess(t *testing.T) {
	repo := &documentRepoFake{}
	storage := newStorageFake(nil)
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "report 1.txt", "text/plain", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if doc.Filename != "report 1.txt" {
		t.Fatalf("expected original filename to be kept, got %q", doc.Filename)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.documentID != doc.ID {
		t.Fatalf("expected queued doc id %s, got %s", doc.ID, queue.documentID)
	}
	if !strings.HasSuffix(doc.StoragePath, "_report_1.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", doc.StoragePath)
	}
	if storage.objects[doc.StoragePath] != "hello" {
		t.Fatalf("expected saved body hello, got %q", storage.objects[doc.StoragePath])
	}
}

func TestIngestUploadRejectsEmptyFilename(t *testing.T) {
	uc := NewIngestDocumentUseCase(&documentRepoFake{}, newStorageFake(nil), &queueFake{})

	_, err := uc.Upload(context.Background(), "  ", "text/plain", bytes.NewBufferString("hello"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestUploadRejectsEmptyBody(t *testing.T) {
	storage := newStorageFake(nil)
	uc := NewIngestDocumentUseCase(&documentRepoFake{}, storage, &queueFake{})

	_, err := uc.Upload(context.Background(), "empty.txt", "text/plain", bytes.NewReader(nil))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected nothing stored, got %d objects", len(storage.objects))
	}
}

func TestIngestUploadQueueErrorMarksDocumentFailed(t *testing.T) {
	repo := &documentRepoFake{}
	uc := NewIngestDocumentUseCase(repo, newStorageFake(nil), &queueFake{err: errors.New("queue down")})

	_, err := uc.Upload(context.Background(), "report.txt", "text/plain", bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("expected document marked failed, got %+v", repo.statusCalls)
	}
	if !strings.Contains(repo.statusCalls[0].errMsg, "queue down") {
		t.Fatalf("expected failure reason to be stored, got %q", repo.statusCalls[0].errMsg)
	}
}

func TestDetectMimeType(t *testing.T) {
	cases := []struct {
		filename, declared, want string
	}{
		{"a.txt", "text/plain; charset=utf-8", "text/plain"},
		{"a.pdf", "application/octet-stream", "application/pdf"},
		{"a.pdf", "", "application/pdf"},
		{"noext", "", ""},
	}
	for _, tc := range cases {
		if got := detectMimeType(tc.filename, tc.declared); got != tc.want {
			t.Fatalf("detectMimeType(%q, %q) = %q, want %q", tc.filename, tc.declared, got, tc.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../etc/passwd": "passwd",
		"a b/c d.txt":   "c_d.txt",
		"отчет.pdf":     "_____.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
