package tags

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("R%d", i+1)
	}
	return out
}

func TestBuildExpression(t *testing.T) {
	tests := []struct {
		name       string
		recipients []string
		critical   bool
		want       string
	}{
		{"empty", nil, true, ""},
		{"single normal", []string{"A"}, false, "u:A:normal"},
		{"two critical", []string{"A", "B"}, true, "u:A:critical || u:B:critical"},
		{"two normal", []string{"A", "B"}, false, "u:A:normal || u:B:normal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildExpression(tt.recipients, tt.critical, MaxExpressionTags))
		})
	}
}

func TestBuildExpression_OneClausePerRecipient(t *testing.T) {
	for n := 1; n <= MaxExpressionTags; n++ {
		for _, critical := range []bool{true, false} {
			expr := BuildExpression(recipients(n), critical, MaxExpressionTags)
			clauses := strings.Split(expr, " || ")
			require.Len(t, clauses, n)
			for i, c := range clauses {
				assert.Equal(t, fmt.Sprintf("u:R%d%s", i+1, Suffix(critical)), c)
			}
		}
	}
}

func TestBuildExpression_TruncatesToFirst20(t *testing.T) {
	expr := BuildExpression(recipients(25), false, MaxExpressionTags)
	clauses := strings.Split(expr, " || ")

	require.Len(t, clauses, 20)
	assert.Equal(t, "u:R1:normal", clauses[0])
	assert.Equal(t, "u:R20:normal", clauses[19])
	assert.NotContains(t, expr, "u:R21:")
}

func TestBuildExpression_LimitClamped(t *testing.T) {
	assert.Len(t, strings.Split(BuildExpression(recipients(30), true, 50), " || "), 20)
	assert.Len(t, strings.Split(BuildExpression(recipients(30), true, 0), " || "), 20)
	assert.Len(t, strings.Split(BuildExpression(recipients(30), true, 5), " || "), 5)
}

func TestChunk(t *testing.T) {
	chunks := Chunk(recipients(45), 20)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 20)
	assert.Len(t, chunks[1], 20)
	assert.Equal(t, []string{"R41", "R42", "R43", "R44", "R45"}, chunks[2])

	assert.Empty(t, Chunk(nil, 20))
}

func TestTagHelpers(t *testing.T) {
	assert.Equal(t, "c:7", Client(7))
	assert.Equal(t, "b:12", Building(12))
	assert.Equal(t, "u:U1", User("U1"))
	assert.Equal(t, "o:ios", OS("iOS"))
	assert.Equal(t, []string{"c:7:critical", "u:U1:critical"}, WithSuffix([]string{"c:7", "u:U1"}, true))
	assert.Equal(t, []string{"c:7:normal"}, WithSuffix([]string{"c:7"}, false))
}
