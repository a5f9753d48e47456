package document

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
)

// Hash field names of a stored document.
const (
	fieldID           = "id"
	fieldTitle        = "title"
	fieldContent      = "content"
	fieldContentType  = "content_type"
	fieldTags         = "tags"
	fieldMetadata     = "metadata"
	fieldEmbedding    = "embedding"
	fieldHasEmbedding = "has_embedding"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

const tagSeparator = ","

// titleWeight makes title terms count double in BM25 candidate ordering.
const titleWeight = 2.0

// returnFields is everything except the raw vector.
var returnFields = []string{
	fieldID, fieldTitle, fieldContent, fieldContentType, fieldTags,
	fieldMetadata, fieldHasEmbedding, fieldCreatedAt, fieldUpdatedAt,
}

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	m := map[string]string{
		fieldID:           doc.ID(),
		fieldTitle:        doc.Title(),
		fieldContent:      doc.Content(),
		fieldContentType:  string(doc.ContentType()),
		fieldTags:         strings.Join(doc.Tags(), tagSeparator),
		fieldMetadata:     encodeMetadata(doc.Metadata()),
		fieldHasEmbedding: "0",
		fieldCreatedAt:    strconv.FormatInt(doc.CreatedAt().UnixMilli(), 10),
		fieldUpdatedAt:    strconv.FormatInt(doc.UpdatedAt().UnixMilli(), 10),
	}
	if doc.HasEmbedding() {
		m[fieldEmbedding] = vectorToBytes(doc.Embedding())
		m[fieldHasEmbedding] = "1"
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) domdoc.Document {
	if v := m[fieldID]; v != "" {
		id = v
	}

	var tags []string
	if raw := m[fieldTags]; raw != "" {
		tags = strings.Split(raw, tagSeparator)
	}

	var embedding []float32
	if raw, ok := m[fieldEmbedding]; ok {
		embedding = bytesToVector(raw)
	}

	return domdoc.Reconstruct(
		id, m[fieldTitle], m[fieldContent], domdoc.ContentType(m[fieldContentType]),
		tags, decodeMetadata(m[fieldMetadata]), embedding,
		parseMillis(m[fieldCreatedAt]), parseMillis(m[fieldUpdatedAt]),
	)
}

func encodeMetadata(md map[string]string) string {
	if len(md) == 0 {
		return "{}"
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var md map[string]string
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
