package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/omnisearch/internal/db"
)

const (
	defaultVectorField = "embedding"
	vectorScoreField   = "__vector_score"
	queryDialect       = "2"
)

var (
	errNoIndex  = errors.New("index name is required")
	errNoVector = errors.New("vector is required")
	errNoQuery  = errors.New("query is required")
	errNoFields = errors.New("at least one text or tag field is required")
)

func positive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

// appendReturn adds a RETURN clause when fields are given.
func appendReturn(args, fields []string) []string {
	if len(fields) == 0 {
		return args
	}
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// SearchKNN runs a vector similarity search. Scores are cosine similarity
// (1 - distance) clamped to [0, 1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errNoIndex
	case len(q.Vector) == 0:
		return nil, errNoVector
	}
	if err := positive("k", q.K); err != nil {
		return nil, err
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	args := []string{q.IndexName, buildKNNQuery(q, field)}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, append(append([]string(nil), q.ReturnFields...), vectorScoreField))
	}
	args = append(args,
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", queryDialect,
	)

	res, err := s.ftSearch(ctx, q.IndexName, args, false)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if raw, ok := e.Fields[vectorScoreField]; ok {
			if d, err := strconv.ParseFloat(raw, 64); err == nil {
				e.Score = min(1, max(0, 1-d))
			}
			delete(e.Fields, vectorScoreField)
		}
	}
	return res, nil
}

// SearchBM25 runs a full-text search scored by the index scorer.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errNoIndex
	case strings.TrimSpace(q.Query) == "":
		return nil, errNoQuery
	case len(q.TextFields) == 0 && len(q.TagFields) == 0:
		return nil, errNoFields
	}
	if err := positive("topK", q.TopK); err != nil {
		return nil, err
	}

	args := appendReturn([]string{q.IndexName, buildTextQuery(q)}, q.ReturnFields)
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", queryDialect,
	)
	return s.ftSearch(ctx, q.IndexName, args, true)
}

// SearchList returns one sorted page of the documents matching the query.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errNoIndex
	}
	if err := positive("limit", q.Limit); err != nil {
		return nil, err
	}

	args := []string{q.IndexName, buildListQuery(q)}
	if q.SortBy != "" {
		order := "ASC"
		if q.Descending {
			order = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))
	args = appendReturn(args, q.ReturnFields)
	args = append(args, "DIALECT", queryDialect)

	return s.ftSearch(ctx, q.IndexName, args, false)
}

// SearchCount returns how many documents match query without fetching any.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0", "DIALECT", queryDialect).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Key: index, Err: err}
	}
	total, err := parseTotal(raw)
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *Store) ftSearch(ctx context.Context, index string, args []string, withScores bool) (*db.SearchResult, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Key: index, Err: err}
	}
	return parseReply(raw, withScores)
}

func parseTotal(raw []rueidis.RedisMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return total, nil
}

// parseReply decodes [total, key, (score,) fields, ...]. Malformed entries
// are skipped rather than failing the whole page.
func parseReply(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	stride := 2
	if withScores {
		stride = 3
	}
	entries := make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}
		if withScores {
			if entry.Score, err = raw[i+1].AsFloat64(); err != nil {
				continue
			}
		}
		fields, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}
		entry.Fields = parseFieldPairs(fields)
		entries = append(entries, entry)
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
