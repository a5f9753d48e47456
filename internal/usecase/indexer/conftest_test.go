package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	domsrc "github.com/kailas-cloud/omnisearch/internal/domain/source"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// memDocs is an in-memory document store keyed by id.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]domdoc.Document

	upsertErr  func(id string) error
	getErr     error
	upserts    int
	statsSince time.Time
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[string]domdoc.Document)}
}

func (m *memDocs) Get(_ context.Context, id string) (domdoc.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domdoc.Document{}, m.getErr
	}
	d, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *memDocs) Upsert(_ context.Context, doc domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		if err := m.upsertErr(doc.ID()); err != nil {
			return err
		}
	}
	m.upserts++
	m.docs[doc.ID()] = doc
	return nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memDocs) Stats(_ context.Context, since time.Time) (indexing.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsSince = since
	st := indexing.Stats{CountsByContentType: map[domdoc.ContentType]int{}}
	for _, d := range m.docs {
		st.TotalDocuments++
		if d.HasEmbedding() {
			st.DocumentsWithEmbeddings++
		}
		st.CountsByContentType[d.ContentType()]++
		if !d.CreatedAt().Before(since) {
			st.RecentlyIndexedCount++
		}
	}
	return st, nil
}

func (m *memDocs) ListWithoutEmbedding(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, d := range m.docs {
		if !d.HasEmbedding() {
			ids = append(ids, id)
		}
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (m *memDocs) get(t *testing.T, id string) domdoc.Document {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		t.Fatalf("document %s not stored", id)
	}
	return d
}

type fakeSource struct {
	users   []domsrc.User
	files   []domsrc.File
	streams []domsrc.Stream
	posts   []domsrc.Post

	usersErr, filesErr, streamsErr, postsErr error

	panicOn domdoc.ContentType
}

func (f *fakeSource) Users(_ context.Context) ([]domsrc.User, error) {
	if f.panicOn == domdoc.TypeUser {
		panic("users exploded")
	}
	return f.users, f.usersErr
}

func (f *fakeSource) Files(_ context.Context) ([]domsrc.File, error) {
	if f.panicOn == domdoc.TypeFile {
		panic("files exploded")
	}
	return f.files, f.filesErr
}

func (f *fakeSource) Streams(_ context.Context) ([]domsrc.Stream, error) {
	return f.streams, f.streamsErr
}

func (f *fakeSource) Posts(_ context.Context) ([]domsrc.Post, error) {
	return f.posts, f.postsErr
}

type fakeEmbedder struct {
	unavailable bool
	failFor     string
	delay       time.Duration

	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (f *fakeEmbedder) Available() bool { return !f.unavailable }

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	if f.failFor != "" && text == f.failFor {
		return domain.EmbeddingResult{}, errors.New("provider rejected input")
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

func newService(t *testing.T, src SourceReader, docs DocumentStore, embed Embedder) *Service {
	t.Helper()
	svc, err := New(src, docs, embed, Config{Workers: 2}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return fixedNow }
	t.Cleanup(svc.Close)
	return svc
}

func sampleSource() *fakeSource {
	return &fakeSource{
		users: []domsrc.User{
			{ID: "1", Username: "alice", Email: "alice@example.com", Bio: "Go developer"},
			{ID: "2", Email: "bob@example.com"},
		},
		files: []domsrc.File{
			{ID: "10", Filename: "report.pdf", FileType: "application/pdf", FileSize: 2048},
		},
		streams: []domsrc.Stream{
			{ID: "20", Title: "Live coding", Status: "live"},
		},
		posts: []domsrc.Post{
			{ID: "30", Title: "Hello", Content: "First post", Tags: []string{"intro"}},
			{ID: "31", Title: "Second"},
		},
	}
}
