package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Filter limits.
const (
	// MaxConditionsPerGroup is the maximum number of conditions per expression group.
	MaxConditionsPerGroup = 32
	// MaxValuesPerSet bounds the content type and tag sets of a request.
	MaxValuesPerSet = 32
	// MaxMetadataPairs bounds the metadata passthrough map.
	MaxMetadataPairs = 8
)

// Store-side field names the expression is compiled against.
const (
	FieldContentType = "content_type"
	FieldTags        = "tags"
	FieldCreatedAt   = "created_at"
)

// DateRange restricts results by document creation time. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Filters is the closed set of restrictions a search request may carry.
// Empty sets mean no restriction.
type Filters struct {
	contentTypes []string
	tags         []string
	dateRange    *DateRange
	metadata     map[string]string
}

// New validates and creates Filters. Sets are lower-cased, deduplicated and sorted.
func New(contentTypes, tags []string, dateRange *DateRange, metadata map[string]string) (Filters, error) {
	if len(contentTypes) > MaxValuesPerSet {
		return Filters{}, fmt.Errorf("too many content types (max %d)", MaxValuesPerSet)
	}
	if len(tags) > MaxValuesPerSet {
		return Filters{}, fmt.Errorf("too many tags (max %d)", MaxValuesPerSet)
	}
	if len(metadata) > MaxMetadataPairs {
		return Filters{}, fmt.Errorf("too many metadata filters (max %d)", MaxMetadataPairs)
	}
	if dateRange != nil && !dateRange.Start.IsZero() && !dateRange.End.IsZero() &&
		dateRange.End.Before(dateRange.Start) {
		return Filters{}, fmt.Errorf("date range end is before start")
	}
	for k := range metadata {
		if strings.TrimSpace(k) == "" {
			return Filters{}, fmt.Errorf("metadata filter key is required")
		}
	}

	f := Filters{
		contentTypes: normalizeSet(contentTypes),
		tags:         normalizeSet(tags),
	}
	if dateRange != nil && (!dateRange.Start.IsZero() || !dateRange.End.IsZero()) {
		dr := *dateRange
		f.dateRange = &dr
	}
	if len(metadata) > 0 {
		f.metadata = maps.Clone(metadata)
	}
	return f, nil
}

// ContentTypes returns the allowed content types.
func (f Filters) ContentTypes() []string { return f.contentTypes }

// Tags returns the tag set; a document matches when it carries any of them.
func (f Filters) Tags() []string { return f.tags }

// DateRange returns the creation time window, nil when unrestricted.
func (f Filters) DateRange() *DateRange { return f.dateRange }

// Metadata returns the exact-match metadata pairs applied after retrieval.
func (f Filters) Metadata() map[string]string { return f.metadata }

// IsEmpty reports whether no restriction is set.
func (f Filters) IsEmpty() bool {
	return len(f.contentTypes) == 0 && len(f.tags) == 0 && f.dateRange == nil && len(f.metadata) == 0
}

// MatchesMetadata reports whether the given metadata satisfies every metadata pair.
func (f Filters) MatchesMetadata(md map[string]string) bool {
	for k, v := range f.metadata {
		if md[k] != v {
			return false
		}
	}
	return true
}

// Expression compiles the store-evaluable part of the filters (metadata excluded).
func (f Filters) Expression() Expression {
	var must []Condition
	if len(f.contentTypes) > 0 {
		must = append(must, Condition{key: FieldContentType, match: f.contentTypes})
	}
	if len(f.tags) > 0 {
		must = append(must, Condition{key: FieldTags, match: f.tags})
	}
	if f.dateRange != nil {
		var r Range
		if !f.dateRange.Start.IsZero() {
			v := float64(f.dateRange.Start.UnixMilli())
			r.gte = &v
		}
		if !f.dateRange.End.IsZero() {
			v := float64(f.dateRange.End.UnixMilli())
			r.lte = &v
		}
		must = append(must, Condition{key: FieldCreatedAt, rangeExpr: &r})
	}
	return Expression{must: must}
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Expression is a structured store filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Condition is a single filter clause: a tag match against any of its values, or a numeric range.
type Condition struct {
	key       string
	match     []string
	rangeExpr *Range
}

// NewMatch creates a tag condition matching any of the given values.
func NewMatch(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("match value is required for key %q", key)
		}
	}
	return Condition{key: key, match: values}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the accepted tag values.
func (c Condition) Match() []string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return len(c.match) > 0 }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
