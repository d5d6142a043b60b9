package trajectory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tortuosity/internal/domain"
	"tortuosity/internal/embedding"
	"tortuosity/internal/tokenizer"
	"tortuosity/internal/tortuosity"
)

func testTable(t *testing.T) *embedding.Table {
	t.Helper()
	table := embedding.NewTable(2)
	words := map[string]domain.Vector{
		"a": {0, 0},
		"b": {1, 0},
		"c": {1, 1},
		"d": {2, 1},
		"e": {2, 3},
		"f": {0, 3},
		"g": {-1, 2},
	}
	for tok, v := range words {
		require.NoError(t, table.Add(tok, v))
	}
	return table
}

func TestBuildDropsMissingTokens(t *testing.T) {
	doc := domain.Document{ID: "1", Lines: []string{"a x b", "c, y z!", "d"}}
	tr := Build(doc, testTable(t))

	assert.Equal(t, 4, tr.Found)
	assert.Equal(t, 3, tr.Missing)
	assert.Equal(t, []int{0, 2, 3, 4}, tr.Boundaries)
	assert.Equal(t, []domain.Vector{{0, 0}, {1, 0}, {1, 1}, {2, 1}}, tr.Vectors)
}

func TestBuildBoundaryConsistency(t *testing.T) {
	doc := domain.Document{ID: "1", Lines: []string{
		"a b c d", "", "nothing here", "e f g", "a", "b c",
	}}
	tr := Build(doc, testTable(t))

	require.Len(t, tr.Boundaries, len(doc.Lines)+1)
	assert.Equal(t, 0, tr.Boundaries[0])
	assert.Equal(t, tr.Found, tr.Boundaries[len(tr.Boundaries)-1])
	assert.Len(t, tr.Vectors, tr.Found)
	total := 0
	for i := 0; i < tr.LineCount(); i++ {
		assert.LessOrEqual(t, tr.Boundaries[i], tr.Boundaries[i+1])
		total += len(tr.Line(i))
	}
	assert.Equal(t, tr.Found, total)
}

func TestBuildCoverageMatchesTokenCount(t *testing.T) {
	lines := []string{"Shall a compare b to a summer's day?", "Thou art more c and more d:"}
	tokens := 0
	for _, l := range lines {
		tokens += len(tokenizer.Tokenize(l))
	}
	for _, res := range []domain.Resolver{testTable(t), embedding.NewTable(2)} {
		tr := Build(domain.Document{ID: "x", Lines: lines}, res)
		assert.Equal(t, tokens, tr.Found+tr.Missing)
	}
}

func TestCoupletNeedsThreeLines(t *testing.T) {
	table := testTable(t)
	two := Build(domain.Document{ID: "2", Lines: []string{"a b c", "d e f"}}, table)
	assert.Nil(t, two.Couplet())

	three := Build(domain.Document{ID: "3", Lines: []string{"a b", "c d", "e f g"}}, table)
	assert.Equal(t, []domain.Vector{{1, 1}, {2, 1}, {2, 3}, {0, 3}, {-1, 2}}, three.Couplet())
}

func TestLineScoresExcludeShortLines(t *testing.T) {
	doc := domain.Document{ID: "1", Lines: []string{"a b c", "d e", "e f g"}}
	tr := Build(doc, testTable(t))
	scores := tr.LineScores()

	require.Len(t, scores, 3)
	assert.True(t, scores[0].Scored)
	assert.False(t, scores[1].Scored)
	assert.Equal(t, 2, scores[1].Vectors)
	assert.Equal(t, 0.0, scores[1].Tortuosity)
	assert.True(t, scores[2].Scored)

	res := tr.Score(doc)
	first := tortuosity.Compute([]domain.Vector{{0, 0}, {1, 0}, {1, 1}})
	last := tortuosity.Compute([]domain.Vector{{2, 3}, {0, 3}, {-1, 2}})
	assert.InDelta(t, (first+last)/2, res.MeanLineTortuosity, 1e-12)
	assert.InDelta(t, math.Max(first, last), res.MaxLineTortuosity, 1e-12)
}

func TestScoreNoQualifyingLines(t *testing.T) {
	doc := domain.Document{ID: "1", Lines: []string{"a b", "c d", "e"}}
	tr := Build(doc, testTable(t))
	res := tr.Score(doc)

	assert.True(t, tr.Scorable())
	assert.Equal(t, 0.0, res.MeanLineTortuosity)
	assert.Equal(t, 0.0, res.MaxLineTortuosity)
	assert.Greater(t, res.OverallTortuosity, 0.0)
	assert.Equal(t, 5, res.WordsFound)
}

func TestScoreRightAngleDocument(t *testing.T) {
	doc := domain.Document{ID: "r", Ordinal: 4, Lines: []string{"a b c"}}
	res := Build(doc, testTable(t)).Score(doc)

	assert.Equal(t, "r", res.ID)
	assert.Equal(t, 4, res.Ordinal)
	assert.InDelta(t, (math.Pi/2)/math.Sqrt2, res.OverallTortuosity, 1e-9)
	assert.Equal(t, res.OverallTortuosity, res.MaxLineTortuosity)
	assert.Equal(t, 0.0, res.CoupletTortuosity)
}
