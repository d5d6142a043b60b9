package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tortuosity/internal/domain"
)

func result(id string, ordinal int, overall, couplet float64, found, missing int) domain.Result {
	return domain.Result{
		ID:                id,
		Ordinal:           ordinal,
		OverallTortuosity: overall,
		CoupletTortuosity: couplet,
		WordsFound:        found,
		WordsMissing:      missing,
	}
}

func sample() []domain.Result {
	return []domain.Result{
		result("3", 3, 2.0, 1.0, 30, 3),
		result("1", 1, 1.0, 4.0, 10, 1),
		result("10", 10, 4.0, 2.0, 40, 0),
		result("2", 2, 1.0, 3.0, 20, 2),
	}
}

func TestDescribe(t *testing.T) {
	s := Describe(sample(), Overall)

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 1.5, s.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(1.5), s.StdDev, 1e-12)
	assert.Equal(t, Extreme{ID: "1", Value: 1.0}, s.Min)
	assert.Equal(t, Extreme{ID: "10", Value: 4.0}, s.Max)
}

func TestDescribeIntegerField(t *testing.T) {
	s := Describe(sample(), WordsMissing)
	assert.InDelta(t, 1.5, s.Mean, 1e-12)
	assert.Equal(t, Extreme{ID: "10", Value: 0}, s.Min)
	assert.Equal(t, Extreme{ID: "3", Value: 3}, s.Max)
}

func TestDescribeEmptyAndSingle(t *testing.T) {
	empty := Describe(nil, Couplet)
	assert.Equal(t, Stats{Field: Couplet}, empty)

	one := Describe([]domain.Result{result("a", 1, 0.5, 0, 3, 0)}, Overall)
	assert.Equal(t, 0.5, one.Mean)
	assert.Equal(t, 0.5, one.Median)
	assert.Equal(t, 0.0, one.StdDev)
}

func TestDescribeOrderIndependent(t *testing.T) {
	in := sample()
	rev := make([]domain.Result, len(in))
	for i := range in {
		rev[len(in)-1-i] = in[i]
	}
	for _, f := range Fields {
		assert.Equal(t, Describe(in, f), Describe(rev, f), f)
	}
}

func TestPartition(t *testing.T) {
	groups := []Group{
		{Name: "early", From: 1, To: 2},
		{Name: "middle", From: 3, To: 9},
		{Name: "late", From: 10, To: 20},
		{Name: "none", From: 50, To: 60},
	}
	got := Partition(sample(), groups)
	require.Len(t, got, 4)

	assert.Equal(t, "early", got[0].Name)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 1.0, got[0].Overall.Mean, 1e-12)
	assert.InDelta(t, 3.5, got[0].Couplet.Median, 1e-12)

	assert.Equal(t, 1, got[1].Count)
	assert.InDelta(t, 2.0, got[1].Overall.Median, 1e-12)

	assert.Equal(t, 1, got[2].Count)
	assert.Equal(t, 0, got[3].Count)
	assert.Equal(t, 0.0, got[3].Overall.Mean)
}

func TestTopBottomTieBreakByID(t *testing.T) {
	top := Top(sample(), 3)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"10", "3", "1"}, ids(top))

	bottom := Bottom(sample(), 2)
	assert.Equal(t, []string{"1", "2"}, ids(bottom))

	assert.Len(t, Top(sample(), 100), 4)
	assert.Empty(t, Bottom(sample(), -1))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := sample()
	Top(in, 4)
	assert.Equal(t, sample(), in)
}

func TestLessID(t *testing.T) {
	assert.True(t, LessID("2", "10"))
	assert.False(t, LessID("10", "2"))
	assert.True(t, LessID("a", "b"))
	assert.True(t, LessID("10", "a"))
	assert.False(t, LessID("x", "x"))
	assert.True(t, LessID("10", "1a"))
	assert.False(t, LessID("1a", "2"))
	assert.True(t, LessID("007", "7"))
}

func TestTieOrderIndependentOfInputOrder(t *testing.T) {
	perms := [][]string{
		{"2", "10", "1a"},
		{"1a", "2", "10"},
		{"10", "1a", "2"},
		{"1a", "10", "2"},
		{"b", "1a", "10", "2"},
	}
	for _, ids := range perms {
		results := make([]domain.Result, 0, len(ids))
		for _, id := range ids {
			results = append(results, domain.Result{ID: id, OverallTortuosity: 1})
		}
		var got []string
		for _, r := range Top(results, len(results)) {
			if r.ID != "b" {
				got = append(got, r.ID)
			}
		}
		assert.Equal(t, []string{"2", "10", "1a"}, got, "input %v", ids)
	}
}

func TestBuild(t *testing.T) {
	batch := domain.Batch{
		Results: sample(),
		Skipped: []domain.Result{{ID: "4", Ordinal: 4, WordsFound: 2, WordsMissing: 4}},
		Failed:  []domain.Failure{{ID: "5", Reason: "missing lines"}},
	}
	rep := Build(batch, Options{TopN: 2, Groups: []Group{{Name: "all", From: 1, To: 100}}})

	assert.Equal(t, 4, rep.Documents)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 102, rep.Coverage.Found)
	assert.Equal(t, 10, rep.Coverage.Missing)
	assert.InDelta(t, 102.0/112.0, rep.Coverage.Ratio, 1e-12)
	require.Len(t, rep.Fields, len(Fields))
	assert.Equal(t, Overall, rep.Fields[0].Field)
	assert.Equal(t, []string{"10", "3"}, ids(rep.Top))
	assert.Equal(t, []string{"1", "2"}, ids(rep.Bottom))
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, 4, rep.Groups[0].Count)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("couplet_tortuosity")
	require.NoError(t, err)
	assert.Equal(t, Couplet, f)
	_, err = ParseField("nope")
	assert.Error(t, err)
}

func ids(rs []domain.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
