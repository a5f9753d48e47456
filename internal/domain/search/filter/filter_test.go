package filter

import (
	"strings"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

// --- Filters tests ---

func TestNew_NormalizesSets(t *testing.T) {
	f, err := New([]string{"Stream", "user", "stream", " "}, []string{"React", "react"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(f.ContentTypes(), ","); got != "stream,user" {
		t.Errorf("ContentTypes() = %q", got)
	}
	if got := strings.Join(f.Tags(), ","); got != "react" {
		t.Errorf("Tags() = %q", got)
	}
}

func TestNew_Empty(t *testing.T) {
	f, err := New(nil, nil, &DateRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.IsEmpty() {
		t.Error("zero date range must be treated as no restriction")
	}
	if !f.Expression().IsEmpty() {
		t.Error("empty filters must compile to an empty expression")
	}
}

func TestNew_Bounds(t *testing.T) {
	many := make([]string, MaxValuesPerSet+1)
	for i := range many {
		many[i] = "t"
	}
	if _, err := New(many, nil, nil, nil); err == nil {
		t.Error("expected error for too many content types")
	}
	if _, err := New(nil, many, nil, nil); err == nil {
		t.Error("expected error for too many tags")
	}

	md := make(map[string]string, MaxMetadataPairs+1)
	for i := 0; i <= MaxMetadataPairs; i++ {
		md[string(rune('a'+i))] = "v"
	}
	if _, err := New(nil, nil, nil, md); err == nil {
		t.Error("expected error for too many metadata pairs")
	}
	if _, err := New(nil, nil, nil, map[string]string{"": "v"}); err == nil {
		t.Error("expected error for empty metadata key")
	}
}

func TestNew_InvertedDateRange(t *testing.T) {
	now := time.Now()
	_, err := New(nil, nil, &DateRange{Start: now, End: now.Add(-time.Hour)}, nil)
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestExpression_Compiles(t *testing.T) {
	start := time.UnixMilli(1000)
	f, err := New([]string{"post", "stream"}, []string{"react"}, &DateRange{Start: start}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	must := f.Expression().Must()
	if len(must) != 3 {
		t.Fatalf("must = %d conditions, want 3", len(must))
	}
	if must[0].Key() != FieldContentType || strings.Join(must[0].Match(), "|") != "post|stream" {
		t.Errorf("content type condition = %+v", must[0])
	}
	if must[1].Key() != FieldTags || !must[1].IsMatch() {
		t.Errorf("tags condition = %+v", must[1])
	}
	r := must[2].Range()
	if must[2].Key() != FieldCreatedAt || r == nil || r.GTE() == nil || *r.GTE() != 1000 || r.LTE() != nil {
		t.Errorf("date condition = %+v", must[2])
	}
}

func TestMatchesMetadata(t *testing.T) {
	f, _ := New(nil, nil, nil, map[string]string{"category": "ai"})
	if !f.MatchesMetadata(map[string]string{"category": "ai", "views": "10"}) {
		t.Error("expected match")
	}
	if f.MatchesMetadata(map[string]string{"category": "music"}) {
		t.Error("expected mismatch")
	}
	if !(Filters{}).MatchesMetadata(nil) {
		t.Error("no metadata filter matches everything")
	}
}

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gt only", floatPtr(1), nil, nil, nil},
		{"gte only", nil, floatPtr(0), nil, nil},
		{"lt only", nil, nil, floatPtr(10), nil},
		{"lte only", nil, nil, nil, floatPtr(100)},
		{"gte+lte", nil, floatPtr(0), nil, floatPtr(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.GT() == nil) != (tt.gt == nil) {
				t.Error("GT() mismatch")
			}
			if (r.LTE() == nil) != (tt.lte == nil) {
				t.Error("LTE() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_Invalid(t *testing.T) {
	if _, err := NewRangeFilter(nil, nil, nil, nil); err == nil {
		t.Error("expected error for no boundary")
	}
	if _, err := NewRangeFilter(floatPtr(1), floatPtr(1), nil, nil); err == nil {
		t.Error("expected error for gt+gte")
	}
	if _, err := NewRangeFilter(nil, nil, floatPtr(1), floatPtr(1)); err == nil {
		t.Error("expected error for lt+lte")
	}
}

// --- Condition tests ---

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("tags", "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected match condition")
	}
	if _, err := NewMatch("", "a"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("tags"); err == nil {
		t.Error("expected error for no values")
	}
	if _, err := NewMatch("tags", "a", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for too many must conditions")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for too many should conditions")
	}
}
