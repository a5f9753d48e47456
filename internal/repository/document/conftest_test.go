package document

import (
	"context"
	"maps"
	"testing"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/db"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
)

// memStore keeps hashes and index definitions in memory. fail injects an
// error for a command name; the search hooks stand in for FT.SEARCH.
type memStore struct {
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition
	fail    map[string]error
	log     []string

	knn   func(q *db.KNNQuery) (*db.SearchResult, error)
	bm25  func(q *db.TextQuery) (*db.SearchResult, error)
	list  func(q *db.ListQuery) (*db.SearchResult, error)
	count func(query string) (int, error)
}

func newMemStore() *memStore {
	return &memStore{
		hashes:  map[string]map[string]string{},
		indexes: map[string]*db.IndexDefinition{},
		fail:    map[string]error{},
	}
}

func (m *memStore) record(op, key string) error {
	m.log = append(m.log, op+" "+key)
	return m.fail[op]
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if err := m.record(db.OpHSet, key); err != nil {
		return err
	}
	if m.hashes[key] == nil {
		m.hashes[key] = map[string]string{}
	}
	maps.Copy(m.hashes[key], fields)
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if err := m.record(db.OpHGetAll, key); err != nil {
		return nil, err
	}
	return maps.Clone(m.hashes[key]), nil
}

func (m *memStore) HDel(_ context.Context, key string, fields ...string) error {
	if err := m.record(db.OpHDel, key); err != nil {
		return err
	}
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	if err := m.record(db.OpDel, key); err != nil {
		return err
	}
	delete(m.hashes, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	if err := m.record(db.OpExists, key); err != nil {
		return false, err
	}
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *memStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := m.record(db.OpCreateIndex, def.Name); err != nil {
		return err
	}
	if _, ok := m.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	m.indexes[def.Name] = def
	return nil
}

func (m *memStore) DropIndex(_ context.Context, name string) error {
	if err := m.record(db.OpDropIndex, name); err != nil {
		return err
	}
	if _, ok := m.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(m.indexes, name)
	return nil
}

func (m *memStore) IndexExists(_ context.Context, name string) (bool, error) {
	if err := m.record(db.OpIndexInfo, name); err != nil {
		return false, err
	}
	_, ok := m.indexes[name]
	return ok, nil
}

func (m *memStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	return search(m, q.IndexName, q, m.knn)
}

func (m *memStore) SearchBM25(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	return search(m, q.IndexName, q, m.bm25)
}

func (m *memStore) SearchList(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	return search(m, q.IndexName, q, m.list)
}

func (m *memStore) SearchCount(_ context.Context, index, query string) (int, error) {
	if err := m.record(db.OpSearch, index); err != nil {
		return 0, err
	}
	if m.count == nil {
		return 0, nil
	}
	return m.count(query)
}

func search[Q any](m *memStore, index string, q Q, hook func(Q) (*db.SearchResult, error)) (*db.SearchResult, error) {
	if err := m.record(db.OpSearch, index); err != nil {
		return nil, err
	}
	if hook == nil {
		return &db.SearchResult{}, nil
	}
	return hook(q)
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, Config{KeyPrefix: "omni:", VectorDim: 4, HNSWM: 16, HNSWEFConstruct: 200}), ms
}

var testCreated = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	return domdoc.Reconstruct("post_1", "React Hooks", "Using hooks in components",
		domdoc.TypePost, []string{"react", "tutorial"}, map[string]string{"url": "/posts/1"},
		[]float32{0.1, 0.2, 0.3, 0.4}, testCreated, testCreated.Add(time.Hour),
	)
}

// hashEntry builds a search entry the way FT.SEARCH returns it.
func hashEntry(id, title, content string, createdAt time.Time) db.SearchEntry {
	doc := domdoc.Reconstruct(id, title, content, domdoc.TypePost, nil, nil, nil, createdAt, createdAt)
	fields := buildHashFields(&doc)
	delete(fields, fieldEmbedding)
	return db.SearchEntry{Key: "omni:doc:" + id, Fields: fields}
}

func entries(es ...db.SearchEntry) *db.SearchResult {
	return &db.SearchResult{Total: len(es), Entries: es}
}
