package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/extractor"
	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/normalizer"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/queue"
)

type fakeOCR struct {
	text       string
	confidence float64
	err        error
}

func (f *fakeOCR) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	return f.text, f.confidence, f.err
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return key, nil
}

func (m *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return nil
}

type memQueue struct {
	mu       sync.Mutex
	tasks    []*queue.Task
	statuses map[string]*queue.TaskStatus
}

func newMemQueue() *memQueue {
	return &memQueue{statuses: make(map[string]*queue.TaskStatus)}
}

func (q *memQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	q.statuses[task.ID] = &queue.TaskStatus{TaskID: task.ID, Status: queue.StatusPending}
	return nil
}

func (q *memQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	status, ok := q.statuses[taskID]
	if !ok {
		return nil, errors.New("task not found")
	}
	return status, nil
}

func (q *memQueue) CancelTask(ctx context.Context, taskID string) error {
	return nil
}

func (q *memQueue) SaveStatus(ctx context.Context, status *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[status.TaskID] = status
	return nil
}

type fixture struct {
	service  Service
	store    *index.MemoryStore
	storage  *memStorage
	queue    *memQueue
	registry *extractor.Registry
}

func newFixture(ocrClient *fakeOCR) *fixture {
	log := logger.NewTestLogger()
	engineCfg := &cfg.EngineConfig{
		MinPageConfidence: 0.60,
		OCRRetries:        0,
		PageWorkers:       2,
		MaxPassageLen:     600,
		MinPassageLen:     0,
	}
	store := index.NewMemoryStore()
	storage := newMemStorage()
	q := newMemQueue()
	registry := extractor.NewRegistry(ocrClient, engineCfg, log)
	norm := normalizer.New(engineCfg.MaxPassageLen, engineCfg.MinPassageLen)

	return &fixture{
		service:  NewService(registry, norm, store, q, storage, log, nil),
		store:    store,
		storage:  storage,
		queue:    q,
		registry: registry,
	}
}

// pagedExtractor replays a fixed page stream, standing in for a multi-page
// source where individual pages can fail.
type pagedExtractor struct {
	pages []extractor.PageResult
}

func (p *pagedExtractor) Extract(ctx context.Context, data []byte) (<-chan extractor.PageResult, error) {
	out := make(chan extractor.PageResult, len(p.pages))
	for _, res := range p.pages {
		out <- res
	}
	close(out)
	return out, nil
}

func upload(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)

	headers := form.File["file"]
	require.Len(t, headers, 1)
	file, err := headers[0].Open()
	require.NoError(t, err)
	return file, headers[0]
}

func TestDocumentIDStable(t *testing.T) {
	a := DocumentID([]byte("same bytes"))
	b := DocumentID([]byte("same bytes"))
	c := DocumentID([]byte("different bytes"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, documentIDLen)
}

func TestProcessFileQueuesTask(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	file, header := upload(t, "notes.txt", []byte("hello ingest world"))
	defer file.Close()

	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.StatusPending, task.Status)

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocPending, doc.Status)

	require.Len(t, fx.queue.tasks, 1)
	assert.Equal(t, queue.TaskTypeDocumentIngest, fx.queue.tasks[0].Type)

	_, err = fx.storage.Get(context.Background(), task.DocumentID+".txt")
	assert.NoError(t, err, "raw bytes live in storage under the document id")
}

func TestProcessFileRejectsUnsupportedType(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	file, header := upload(t, "report.docx", []byte("binary"))
	defer file.Close()

	_, err := fx.service.ProcessFile(context.Background(), file, header)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
	assert.Empty(t, fx.queue.tasks)
}

func TestHandleIngestCompleteDocument(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	file, header := upload(t, "notes.txt", []byte("page about invoices\fpage about totals"))
	defer file.Close()

	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)

	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocComplete, doc.Status)
	assert.Equal(t, 2, doc.PageCount)

	refs, err := fx.store.Postings(context.Background(), "invoices")
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	status, err := fx.queue.GetTaskStatus(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, status.Status)
	assert.Equal(t, task.DocumentID, status.DocumentID)
}

// Identical bytes re-ingested land on the same document id and do not
// duplicate passages.
func TestHandleIngestIdempotent(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	content := []byte("a single page about invoices")

	for i := 0; i < 2; i++ {
		file, header := upload(t, "notes.txt", content)
		task, err := fx.service.ProcessFile(context.Background(), file, header)
		require.NoError(t, err)
		file.Close()
		require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[i]))

		doc, err := fx.store.Document(context.Background(), task.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, models.DocComplete, doc.Status)
	}

	docs, err := fx.store.Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	count, err := fx.store.PassageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// A re-upload of bytes that are already indexed must not take the live
// document offline while the new extraction job runs.
func TestProcessFileKeepsLiveDocumentSearchable(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	content := []byte("a single page about invoices")

	file, header := upload(t, "notes.txt", content)
	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)
	file.Close()
	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	// Second upload of the same bytes, before any worker picks it up.
	file, header = upload(t, "notes.txt", content)
	defer file.Close()
	again, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)
	assert.Equal(t, task.DocumentID, again.DocumentID)

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocComplete, doc.Status, "live entry survives the re-upload")

	refs, err := fx.store.Postings(context.Background(), "invoices")
	require.NoError(t, err)
	assert.Len(t, refs, 1, "old passages stay searchable until the worker republishes")
}

// One failed page degrades the document to partial; its siblings still index.
func TestHandleIngestFailedPageKeepsSiblings(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	fx.registry.Register("text/plain", &pagedExtractor{pages: []extractor.PageResult{
		{Ordinal: 1, Text: "totals for invoices", Confidence: 1.0, Status: models.PageOK},
		{Ordinal: 2, Status: models.PageFailed, Err: "torn page"},
	}})

	file, header := upload(t, "notes.txt", []byte("two page body"))
	defer file.Close()
	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)
	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocPartial, doc.Status)
	assert.Equal(t, 2, doc.PageCount)

	refs, err := fx.store.Postings(context.Background(), "invoices")
	require.NoError(t, err)
	assert.Len(t, refs, 1, "the good page is indexed despite its failed sibling")

	pages, err := fx.store.Pages(context.Background(), task.DocumentID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, models.PageFailed, pages[1].Status)
	assert.Equal(t, "torn page", pages[1].Error)

	status, err := fx.queue.GetTaskStatus(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPartial, status.Status)
}

func TestHandleIngestOCRFailureFailsDocument(t *testing.T) {
	fx := newFixture(&fakeOCR{err: errors.New("engine down")})
	file, header := upload(t, "scan.png", []byte("not really an image"))
	defer file.Close()

	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)

	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocFailed, doc.Status)

	status, err := fx.queue.GetTaskStatus(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, status.Status)
}

func TestHandleIngestLowConfidencePageSkipped(t *testing.T) {
	fx := newFixture(&fakeOCR{text: "garbled scan", confidence: 0.20})
	file, header := upload(t, "scan.png", []byte("image bytes"))
	defer file.Close()

	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)

	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	doc, err := fx.store.Document(context.Background(), task.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.DocFailed, doc.Status, "nothing indexable means failed")

	pages, err := fx.store.Pages(context.Background(), task.DocumentID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, models.PageSkipped, pages[0].Status)
	assert.Equal(t, "garbled scan", pages[0].Text, "skipped text stays for audit")
}

func TestDeleteDocument(t *testing.T) {
	fx := newFixture(&fakeOCR{})
	file, header := upload(t, "notes.txt", []byte("searchable content here"))
	defer file.Close()

	task, err := fx.service.ProcessFile(context.Background(), file, header)
	require.NoError(t, err)
	require.NoError(t, fx.service.HandleIngest(context.Background(), fx.queue.tasks[0]))

	require.NoError(t, fx.service.DeleteDocument(context.Background(), task.DocumentID))

	_, err = fx.store.Document(context.Background(), task.DocumentID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = fx.service.DeleteDocument(context.Background(), task.DocumentID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestClearIndex(t *testing.T) {
	fx := newFixture(&fakeOCR{})

	for _, content := range []string{"first document body", "second document body"} {
		file, header := upload(t, "notes.txt", []byte(content))
		_, err := fx.service.ProcessFile(context.Background(), file, header)
		require.NoError(t, err)
		file.Close()
	}
	for _, task := range fx.queue.tasks {
		require.NoError(t, fx.service.HandleIngest(context.Background(), task))
	}

	removed, err := fx.service.ClearIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	docs, err := fx.service.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSettleStatus(t *testing.T) {
	assert.Equal(t, models.DocFailed, settleStatus(0, 0))
	assert.Equal(t, models.DocFailed, settleStatus(3, 0))
	assert.Equal(t, models.DocPartial, settleStatus(3, 2))
	assert.Equal(t, models.DocComplete, settleStatus(3, 3))
}
