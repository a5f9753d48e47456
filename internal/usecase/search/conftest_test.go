package search

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/request"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newDoc(id, title string, tags []string, createdAt time.Time) domdoc.Document {
	return domdoc.Reconstruct(id, title, "", domdoc.TypePost, tags, nil, nil, createdAt, createdAt)
}

// memStore is an in-memory document store. Text queries match title and tags by substring;
// similarity returns the preset semantic scores.
type memStore struct {
	mu       sync.Mutex
	docs     []domdoc.Document
	semantic map[string]float64

	simErr, textErr, titleErr error
	// blockSim and blockText make the query wait for its context to end.
	blockSim, blockText bool

	simLimit, textLimit, titleLimit int

	calls int
}

func (m *memStore) record(limit *int, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*limit = n
	m.calls++
}

func (m *memStore) find(id string) (domdoc.Document, bool) {
	for _, d := range m.docs {
		if d.ID() == id {
			return d, true
		}
	}
	return domdoc.Document{}, false
}

func (m *memStore) QueryBySimilarity(
	ctx context.Context, _ []float32, _ filter.Filters, limit int,
) ([]result.Result, error) {
	m.record(&m.simLimit, limit)
	if m.blockSim {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.simErr != nil {
		return nil, m.simErr
	}
	var out []result.Result
	for id, score := range m.semantic {
		if d, ok := m.find(id); ok {
			out = append(out, result.New(d, score, mode.Semantic))
		}
	}
	slices.SortFunc(out, func(a, b result.Result) int {
		if a.Score() != b.Score() {
			if a.Score() > b.Score() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.DocumentID(), b.DocumentID())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) QueryByText(
	ctx context.Context, text string, _ filter.Filters, limit int,
) ([]result.Result, error) {
	m.record(&m.textLimit, limit)
	if m.blockText {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.textErr != nil {
		return nil, m.textErr
	}
	needle := strings.ToLower(text)
	var out []result.Result
	for _, d := range m.docs {
		switch {
		case strings.Contains(strings.ToLower(d.Title()), needle):
			out = append(out, result.New(d, 1.0, mode.Keyword))
		case slices.Contains(d.Tags(), needle):
			out = append(out, result.New(d, 0.6, mode.Keyword))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) QueryByTitle(
	_ context.Context, substring string, _ filter.Filters, limit int,
) ([]result.Result, error) {
	m.record(&m.titleLimit, limit)
	if m.titleErr != nil {
		return nil, m.titleErr
	}
	docs := slices.Clone(m.docs)
	slices.SortFunc(docs, func(a, b domdoc.Document) int { return b.CreatedAt().Compare(a.CreatedAt()) })
	needle := strings.ToLower(substring)
	var out []result.Result
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title()), needle) {
			out = append(out, result.New(d, 0.5, mode.Fallback))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	unavailable bool
	err         error
	calls       int
}

func (f *fakeEmbedder) Available() bool { return !f.unavailable }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3, 0.4}}, nil
}

type fakeLogger struct {
	mu      sync.Mutex
	records []query.Record
}

func (f *fakeLogger) Log(rec query.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
}

type fakeSuggester struct {
	out   []string
	calls int
}

func (f *fakeSuggester) Suggest(_ context.Context, _ string, limit int) []string {
	f.calls++
	if len(f.out) > limit {
		return f.out[:limit]
	}
	return f.out
}

type fixture struct {
	svc     *Service
	store   *memStore
	embed   *fakeEmbedder
	log     *fakeLogger
	suggest *fakeSuggester
}

func newFixture(t *testing.T, store *memStore) *fixture {
	t.Helper()
	f := &fixture{
		store:   store,
		embed:   &fakeEmbedder{},
		log:     &fakeLogger{},
		suggest: &fakeSuggester{out: []string{"react hooks", "react router"}},
	}
	f.svc = New(f.store, f.embed, f.log, f.suggest, Config{BranchTimeout: 50 * time.Millisecond}, nil)
	return f
}

func newRequest(t *testing.T, q string, m mode.Mode, limit, offset int) *request.Request {
	t.Helper()
	req, err := request.New(q, m, filter.Filters{}, limit, offset, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &req
}

// scenarioStore holds two documents: s1 about react, s2 about cooking.
func scenarioStore() *memStore {
	return &memStore{docs: []domdoc.Document{
		newDoc("s1", "React Best Practices", []string{"react"}, baseTime),
		newDoc("s2", "Cooking Basics", []string{"food"}, baseTime.Add(-time.Hour)),
	}}
}
