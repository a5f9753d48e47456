// Package source holds raw content units and their transformation into searchable documents.
package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
)

// Unit is a normalized content unit ready to become a Document.
type Unit struct {
	ID          string
	Title       string
	Content     string
	ContentType domdoc.ContentType
	Tags        []string
	Metadata    map[string]string
}

// ToDocument validates the unit and builds a Document without embedding or timestamps.
func (u Unit) ToDocument() (domdoc.Document, error) {
	doc, err := domdoc.New(u.ID, u.Title, u.Content, u.ContentType, u.Tags, u.Metadata)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document %s: %w", u.ID, err)
	}
	return doc, nil
}

// User is a user profile row.
type User struct {
	ID        string
	Username  string
	Email     string
	Bio       string
	CreatedAt time.Time
}

// File is a stored file row.
type File struct {
	ID          string
	Filename    string
	Description string
	FileType    string
	FileSize    int64
	UserID      string
	CreatedAt   time.Time
	Metadata    map[string]string
}

// Stream is a live stream row.
type Stream struct {
	ID          string
	Title       string
	Description string
	Status      string
	UserID      string
	CreatedAt   time.Time
	Metadata    map[string]string
}

// Post is a post row.
type Post struct {
	ID        string
	Title     string
	Content   string
	Status    string
	UserID    string
	CreatedAt time.Time
	Tags      []string
}

// FromUser maps a user row: title is the username, falling back to email.
func FromUser(u User) Unit {
	title := firstNonEmpty(u.Username, u.Email, "User")
	bio := firstNonEmpty(u.Bio, "User profile")

	md := map[string]string{"url": "/users/" + u.ID}
	putIf(md, "email", u.Email)
	putIf(md, "username", u.Username)
	putTime(md, "createdAt", u.CreatedAt)

	return Unit{
		ID:          "user_" + u.ID,
		Title:       title,
		Content:     joinNonEmpty(bio, u.Email, u.Username),
		ContentType: domdoc.TypeUser,
		Tags:        []string{"user", "profile"},
		Metadata:    md,
	}
}

// FromFile maps a stored file row. MIME families become tags.
func FromFile(f File) Unit {
	fileType := firstNonEmpty(f.FileType, "unknown")
	tags := []string{"file", fileType}
	switch {
	case strings.HasPrefix(f.FileType, "image/"):
		tags = append(tags, "image")
	case strings.HasPrefix(f.FileType, "video/"):
		tags = append(tags, "video")
	case strings.HasPrefix(f.FileType, "audio/"):
		tags = append(tags, "audio")
	}
	if strings.Contains(f.FileType, "pdf") {
		tags = append(tags, "document", "pdf")
	}

	md := make(map[string]string, len(f.Metadata)+5)
	for k, v := range f.Metadata {
		md[k] = v
	}
	md["url"] = "/storage/files/" + f.ID
	md["fileType"] = fileType
	md["fileSize"] = strconv.FormatInt(f.FileSize, 10)
	putIf(md, "userId", f.UserID)
	putTime(md, "createdAt", f.CreatedAt)

	size := uint64(0)
	if f.FileSize > 0 {
		size = uint64(f.FileSize)
	}

	return Unit{
		ID:    "file_" + f.ID,
		Title: f.Filename,
		Content: fmt.Sprintf("%s File type: %s Size: %s",
			firstNonEmpty(f.Description, f.Filename), fileType, humanize.Bytes(size)),
		ContentType: domdoc.TypeFile,
		Tags:        tags,
		Metadata:    md,
	}
}

// FromStream maps a stream row; the status doubles as a tag.
func FromStream(s Stream) Unit {
	status := firstNonEmpty(s.Status, "unknown")

	md := make(map[string]string, len(s.Metadata)+4)
	for k, v := range s.Metadata {
		md[k] = v
	}
	md["url"] = "/streams/" + s.ID
	md["status"] = status
	putIf(md, "userId", s.UserID)
	putTime(md, "createdAt", s.CreatedAt)

	return Unit{
		ID:          "stream_" + s.ID,
		Title:       s.Title,
		Content:     firstNonEmpty(s.Description, "Stream: "+s.Title),
		ContentType: domdoc.TypeStream,
		Tags:        []string{"stream", status},
		Metadata:    md,
	}
}

// FromPost maps a post row; untagged posts get the "post" tag.
func FromPost(p Post) Unit {
	tags := p.Tags
	if len(tags) == 0 {
		tags = []string{"post"}
	}

	md := map[string]string{"url": "/posts/" + p.ID}
	putIf(md, "status", p.Status)
	putIf(md, "userId", p.UserID)
	putTime(md, "createdAt", p.CreatedAt)

	return Unit{
		ID:          "post_" + p.ID,
		Title:       p.Title,
		Content:     firstNonEmpty(p.Content, "Post: "+p.Title),
		ContentType: domdoc.TypePost,
		Tags:        tags,
		Metadata:    md,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func putIf(md map[string]string, key, value string) {
	if value != "" {
		md[key] = value
	}
}

func putTime(md map[string]string, key string, t time.Time) {
	if !t.IsZero() {
		md[key] = t.UTC().Format(time.RFC3339)
	}
}
