// Package tags derives hub tags and OR tag expressions.
package tags

import (
	"strconv"
	"strings"
)

// MaxExpressionTags is the hub's limit on tags in one OR expression.
const MaxExpressionTags = 20

const (
	SuffixCritical = ":critical"
	SuffixNormal   = ":normal"
)

const orSeparator = " || "

func Client(id int64) string   { return "c:" + strconv.FormatInt(id, 10) }
func Building(id int64) string { return "b:" + strconv.FormatInt(id, 10) }
func User(id string) string    { return "u:" + id }
func OS(os string) string      { return "o:" + strings.ToLower(os) }

// Suffix returns the urgency suffix.
func Suffix(critical bool) string {
	if critical {
		return SuffixCritical
	}
	return SuffixNormal
}

// WithSuffix returns a copy of tags with the urgency suffix appended to each.
func WithSuffix(tags []string, critical bool) []string {
	suffix := Suffix(critical)
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t + suffix
	}
	return out
}

// BuildExpression ORs u:<id>:<urgency> for at most max recipients, in
// input order. An empty list gives an empty expression.
func BuildExpression(recipients []string, critical bool, max int) string {
	if max <= 0 || max > MaxExpressionTags {
		max = MaxExpressionTags
	}
	if len(recipients) > max {
		recipients = recipients[:max]
	}
	if len(recipients) == 0 {
		return ""
	}

	suffix := Suffix(critical)
	parts := make([]string, len(recipients))
	for i, r := range recipients {
		parts[i] = User(r) + suffix
	}
	return strings.Join(parts, orSeparator)
}

// Chunk splits recipients into consecutive groups of at most size.
func Chunk(recipients []string, size int) [][]string {
	if size <= 0 || size > MaxExpressionTags {
		size = MaxExpressionTags
	}
	var chunks [][]string
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		chunks = append(chunks, recipients[start:end])
	}
	return chunks
}
