package redis

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/omnisearch/internal/db"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
)

// Characters that must be backslash-escaped inside a TAG value and inside
// free-text query terms respectively.
const (
	tagSpecials  = ",.<>{}\"':;!@#$%^&*()-+=~ "
	textSpecials = `\'"@{}()|-~*[]!%^$<>=;+`
)

func escapeWith(s, specials string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeTag(s string) string { return escapeWith(s, tagSpecials) }

func escapeQuery(s string) string { return escapeWith(s, textSpecials) }

// withFilter prefixes an FT query with a rendered filter, if any.
func withFilter(expr filter.Expression, query string) string {
	f := buildFilter(expr)
	switch {
	case f == "":
		return query
	case query == "" || query == "*":
		return f
	default:
		return "(" + f + ") " + query
	}
}

func buildListQuery(q *db.ListQuery) string {
	query := withFilter(q.Filters, q.Query)
	if query == "" {
		return "*"
	}
	return query
}

// buildTextQuery renders "(filter) ((@f1|f2:(q)) | (@tag:{q}))". Tag fields
// are matched against the lowercased query as one exact value.
func buildTextQuery(q *db.TextQuery) string {
	alts := make([]string, 0, 1+len(q.TagFields))
	if len(q.TextFields) > 0 {
		alts = append(alts, "(@"+strings.Join(q.TextFields, "|")+":("+escapeQuery(q.Query)+"))")
	}
	tag := escapeTag(strings.ToLower(strings.TrimSpace(q.Query)))
	for _, f := range q.TagFields {
		alts = append(alts, "(@"+f+":{"+tag+"})")
	}

	text := strings.Join(alts, " | ")
	if len(alts) > 1 {
		text = "(" + text + ")"
	}
	return withFilter(q.Filters, text)
}

// buildKNNQuery renders the KNN clause with an optional pre-filter.
func buildKNNQuery(q *db.KNNQuery, field string) string {
	base := "*"
	if f := buildFilter(q.Filters); f != "" {
		base = "(" + f + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", base, q.K, field)
}

// buildFilter renders must conditions, one OR group of should conditions and
// negated must-not conditions, space separated (intersection).
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot())+1)
	for _, c := range expr.Must() {
		parts = append(parts, buildCondition(c))
	}
	if should := expr.Should(); len(should) > 0 {
		alts := make([]string, len(should))
		for i, c := range should {
			alts[i] = buildCondition(c)
		}
		parts = append(parts, "("+strings.Join(alts, " | ")+")")
	}
	for _, c := range expr.MustNot() {
		parts = append(parts, "-"+buildCondition(c))
	}
	return strings.Join(parts, " ")
}

func buildCondition(c filter.Condition) string {
	switch {
	case c.IsMatch():
		values := make([]string, len(c.Match()))
		for i, v := range c.Match() {
			values[i] = escapeTag(v)
		}
		return "@" + c.Key() + ":{" + strings.Join(values, " | ") + "}"
	case c.IsRange():
		return buildNumericFilter(c.Key(), *c.Range())
	default:
		return ""
	}
}

// buildNumericFilter renders a range; "(" marks an exclusive bound.
func buildNumericFilter(key string, r filter.Range) string {
	lower, upper := "-inf", "+inf"
	switch {
	case r.GT() != nil:
		lower = "(" + formatNumber(*r.GT())
	case r.GTE() != nil:
		lower = formatNumber(*r.GTE())
	}
	switch {
	case r.LT() != nil:
		upper = "(" + formatNumber(*r.LT())
	case r.LTE() != nil:
		upper = formatNumber(*r.LTE())
	}
	return "@" + key + ":[" + lower + " " + upper + "]"
}

// formatNumber keeps unix timestamps out of exponent notation.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// vectorToBytes encodes a FLOAT32 vector blob, little-endian.
func vectorToBytes(v []float32) string {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return string(buf)
}
