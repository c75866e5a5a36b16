package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/docsim/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type documentRepoFake struct {
	doc           *domain.SourceDocument
	created       *domain.SourceDocument
	createErr     error
	getErr        error
	statusErr     error
	failStatusErr error
	statsErr      error
	statusCalls   []statusCall
	wordCount     int
	groupKey      string
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.SourceDocument) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *documentRepoFake) GetByID(context.Context, string) (*domain.SourceDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *documentRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	return f.statusErr
}

func (f *documentRepoFake) SaveWordStats(_ context.Context, _ string, wordCount int, groupKey string) error {
	if f.statsErr != nil {
		return f.statsErr
	}
	f.wordCount = wordCount
	f.groupKey = groupKey
	return nil
}

type wordSetRepoFake struct {
	saved   map[string]domain.WordSetRecord
	stream  []domain.WordSetRecord
	saveErr error
	scanErr error
}

func (f *wordSetRepoFake) SaveRecord(_ context.Context, sourceID string, rec domain.WordSetRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[string]domain.WordSetRecord)
	}
	f.saved[sourceID] = rec
	return nil
}

func (f *wordSetRepoFake) ForEachRecord(_ context.Context, fn func(domain.WordSetRecord) error) error {
	for _, rec := range f.stream {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return f.scanErr
}

type runRepoFake struct {
	mu        sync.Mutex
	run       *domain.SimilarityRun
	getErr    error
	createErr error
	saveErr   func(records []domain.SimilarityRecord) error
	statuses  []domain.RunStatus
	finished  *domain.SimilarityRun
	results   map[string][]domain.SimilarityRecord
	listed    []domain.SimilarityRecord
}

func (f *runRepoFake) CreateRun(_ context.Context, run *domain.SimilarityRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyRun := *run
	f.run = &copyRun
	return nil
}

func (f *runRepoFake) GetRun(context.Context, string) (*domain.SimilarityRun, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.run == nil {
		return nil, domain.WrapError(domain.ErrRunNotFound, "get similarity run", errors.New("fake"))
	}
	copyRun := *f.run
	return &copyRun, nil
}

func (f *runRepoFake) UpdateRunStatus(_ context.Context, _ string, status domain.RunStatus, _ string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *runRepoFake) FinishRun(_ context.Context, run *domain.SimilarityRun) error {
	copyRun := *run
	f.finished = &copyRun
	return nil
}

func (f *runRepoFake) SaveGroupResults(_ context.Context, _ string, records []domain.SimilarityRecord) error {
	if f.saveErr != nil {
		if err := f.saveErr(records); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		f.results = make(map[string][]domain.SimilarityRecord)
	}
	for _, rec := range records {
		f.results[rec.GroupKey] = append(f.results[rec.GroupKey], rec)
	}
	return nil
}

func (f *runRepoFake) ListResults(context.Context, string, float64) ([]domain.SimilarityRecord, error) {
	return f.listed, nil
}

type storageFake struct {
	objects map[string]string
	saveErr error
	openErr error
}

func newStorageFake(objects map[string]string) *storageFake {
	if objects == nil {
		objects = make(map[string]string)
	}
	return &storageFake{objects: objects}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *storageFake) List(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

type queueFake struct {
	documentID string
	runID      string
	err        error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *queueFake) PublishRunRequested(_ context.Context, runID string) error {
	if f.err != nil {
		return f.err
	}
	f.runID = runID
	return nil
}

func (f *queueFake) SubscribeRunRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

// storageTextExtractor reads the stored object as text.
type storageTextExtractor struct {
	storage *storageFake
	err     error
}

func (f *storageTextExtractor) Extract(ctx context.Context, doc *domain.SourceDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	rc, err := f.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	if bytes.Contains(raw, []byte{0xff}) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", errors.New("binary"))
	}
	return string(raw), nil
}

// fieldsNormalizer lowercases whitespace-separated tokens.
type fieldsNormalizer struct{}

func (fieldsNormalizer) Words(text string) domain.WordSet {
	return domain.NewWordSet(strings.Fields(strings.ToLower(text))...)
}

type reportFake struct {
	written []domain.SimilarityRecord
	err     error
}

func (f *reportFake) Write(w io.Writer, records []domain.SimilarityRecord) error {
	if f.err != nil {
		return f.err
	}
	f.written = append([]domain.SimilarityRecord(nil), records...)
	for _, rec := range records {
		if _, err := io.WriteString(w, rec.PairKey()+"\t"+rec.ScoreLabel()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

type graphFake struct {
	runID   string
	records []domain.SimilarityRecord
	err     error
}

func (f *graphFake) WriteSimilarities(_ context.Context, runID string, records []domain.SimilarityRecord) error {
	if f.err != nil {
		return f.err
	}
	f.runID = runID
	f.records = records
	return nil
}

type observerFake struct {
	mu        sync.Mutex
	malformed int
	faulted   int
	groups    int
}

func (f *observerFake) ObserveMalformedRecord() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.malformed++
}

func (f *observerFake) ObserveGroup(int, int64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups++
}

func (f *observerFake) ObserveFaultedGroup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faulted++
}
