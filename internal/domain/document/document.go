package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// ContentType is the kind of source unit a document was built from.
type ContentType string

// Content type constants.
const (
	TypeUser    ContentType = "user"
	TypeStream  ContentType = "stream"
	TypeFile    ContentType = "file"
	TypePost    ContentType = "post"
	TypeComment ContentType = "comment"
)

// ContentTypes lists every known content type in a stable order.
func ContentTypes() []ContentType {
	return []ContentType{TypeUser, TypeStream, TypeFile, TypePost, TypeComment}
}

// IsValid checks if the content type is one of the supported values.
func (t ContentType) IsValid() bool {
	return slices.Contains(ContentTypes(), t)
}

// Document is the searchable representation of a content unit (immutable value object).
type Document struct {
	id          string
	title       string
	content     string
	contentType ContentType
	tags        []string
	metadata    map[string]string
	embedding   []float32
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates a Document. Tags are deduplicated and sorted.
func New(
	id, title, content string, contentType ContentType,
	tags []string, metadata map[string]string,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID %q contains invalid characters", id)
	}
	if !contentType.IsValid() {
		return Document{}, fmt.Errorf("unknown content type %q", contentType)
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("title or content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		id:          id,
		title:       title,
		content:     content,
		contentType: contentType,
		tags:        normalizeTags(tags),
		metadata:    cloneStringMap(metadata),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, content string, contentType ContentType,
	tags []string, metadata map[string]string, embedding []float32,
	createdAt, updatedAt time.Time,
) Document {
	return Document{
		id: id, title: title, content: content, contentType: contentType,
		tags: tags, metadata: metadata, embedding: embedding,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// ContentType returns the source content type.
func (d *Document) ContentType() ContentType { return d.contentType }

// Tags returns the sorted tag set.
func (d *Document) Tags() []string { return d.tags }

// Metadata returns the string metadata map.
func (d *Document) Metadata() map[string]string { return d.metadata }

// Embedding returns the embedding vector, nil when not computed.
func (d *Document) Embedding() []float32 { return d.embedding }

// HasEmbedding reports whether an embedding is present.
func (d *Document) HasEmbedding() bool { return len(d.embedding) > 0 }

// CreatedAt returns the first indexing time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last indexing time.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// EmbeddingText is the text sent to the embedding provider.
func (d *Document) EmbeddingText() string {
	return strings.TrimSpace(d.title + " " + d.content)
}

// ContentHash fingerprints every indexed field except the embedding and timestamps.
func (d *Document) ContentHash() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(d.title)
	write(d.content)
	write(string(d.contentType))
	write(strings.Join(d.tags, ","))

	keys := make([]string, 0, len(d.metadata))
	for k := range d.metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		write(k)
		write(d.metadata[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WithEmbedding returns a copy with the given embedding set (nil clears it).
func (d *Document) WithEmbedding(v []float32) Document {
	c := *d
	c.embedding = v
	return c
}

// WithTimestamps returns a copy with the given creation and update times.
func (d *Document) WithTimestamps(createdAt, updatedAt time.Time) Document {
	c := *d
	c.createdAt = createdAt
	c.updatedAt = updatedAt
	return c
}

// HasAnyTag reports whether the document carries at least one of the given tags.
func (d *Document) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(d.tags, strings.ToLower(strings.TrimSpace(t))) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || strings.Contains(t, ",") {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
