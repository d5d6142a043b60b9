// Package aggregate reduces per-document results into corpus statistics,
// group comparisons and rankings. Every function is a pure fold over its input.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"tortuosity/internal/domain"
)

// Field names a numeric column of domain.Result.
type Field string

const (
	Overall      Field = "overall_tortuosity"
	MeanLine     Field = "mean_line_tortuosity"
	MaxLine      Field = "max_line_tortuosity"
	Couplet      Field = "couplet_tortuosity"
	WordsFound   Field = "words_found"
	WordsMissing Field = "words_missing"
)

// Fields lists every numeric column in output order.
var Fields = []Field{Overall, MeanLine, MaxLine, Couplet, WordsFound, WordsMissing}

// ParseField resolves a column name.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// Value extracts the field from r.
func (f Field) Value(r domain.Result) float64 {
	switch f {
	case Overall:
		return r.OverallTortuosity
	case MeanLine:
		return r.MeanLineTortuosity
	case MaxLine:
		return r.MaxLineTortuosity
	case Couplet:
		return r.CoupletTortuosity
	case WordsFound:
		return float64(r.WordsFound)
	case WordsMissing:
		return float64(r.WordsMissing)
	}
	return 0
}

// Extreme is a value together with the document that owns it.
type Extreme struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// Stats describes one field over a set of results.
type Stats struct {
	Field  Field   `json:"field"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	// StdDev is the population standard deviation.
	StdDev float64 `json:"std"`
	Min    Extreme `json:"min"`
	Max    Extreme `json:"max"`
}

// Describe computes descriptive statistics of field over results. Ties for
// min and max go to the lowest identifier.
func Describe(results []domain.Result, field Field) Stats {
	s := Stats{Field: field, Count: len(results)}
	if len(results) == 0 {
		return s
	}
	ordered := sortedByID(results)
	values := make([]float64, len(ordered))
	for i, r := range ordered {
		v := field.Value(r)
		values[i] = v
		if i == 0 || v < s.Min.Value {
			s.Min = Extreme{ID: r.ID, Value: v}
		}
		if i == 0 || v > s.Max.Value {
			s.Max = Extreme{ID: r.ID, Value: v}
		}
	}
	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	s.Median = median(values)
	return s
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Group is a caller-defined inclusive range of document ordinals.
type Group struct {
	Name string `json:"name"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// Contains reports whether ordinal falls in the group.
func (g Group) Contains(ordinal int) bool { return ordinal >= g.From && ordinal <= g.To }

// GroupSummary compares one group against the others.
type GroupSummary struct {
	Group
	Count   int   `json:"count"`
	Overall Stats `json:"overall"`
	Couplet Stats `json:"couplet"`
}

// Partition summarizes each group. Groups may overlap; documents outside
// every group are ignored.
func Partition(results []domain.Result, groups []Group) []GroupSummary {
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		var members []domain.Result
		for _, r := range results {
			if g.Contains(r.Ordinal) {
				members = append(members, r)
			}
		}
		out = append(out, GroupSummary{
			Group:   g,
			Count:   len(members),
			Overall: Describe(members, Overall),
			Couplet: Describe(members, Couplet),
		})
	}
	return out
}

// Top returns the n results with the highest overall tortuosity.
func Top(results []domain.Result, n int) []domain.Result {
	return rank(results, n, func(a, b float64) bool { return a > b })
}

// Bottom returns the n results with the lowest overall tortuosity.
func Bottom(results []domain.Result, n int) []domain.Result {
	return rank(results, n, func(a, b float64) bool { return a < b })
}

func rank(results []domain.Result, n int, better func(a, b float64) bool) []domain.Result {
	ordered := append([]domain.Result(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].OverallTortuosity, ordered[j].OverallTortuosity
		if a != b {
			return better(a, b)
		}
		return LessID(ordered[i].ID, ordered[j].ID)
	})
	if n < 0 {
		n = 0
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}

// LessID orders identifiers ascending. Integer ids come first in numeric
// order, every other id follows in string order.
func LessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	aInt, bInt := aerr == nil, berr == nil
	switch {
	case aInt && bInt:
		if ai != bi {
			return ai < bi
		}
	case aInt != bInt:
		return aInt
	}
	return a < b
}

func sortedByID(results []domain.Result) []domain.Result {
	ordered := append([]domain.Result(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool { return LessID(ordered[i].ID, ordered[j].ID) })
	return ordered
}

// Coverage totals embedding coverage over scored and skipped documents.
type Coverage struct {
	Found   int     `json:"words_found"`
	Missing int     `json:"words_missing"`
	Ratio   float64 `json:"ratio"`
}

// Options configures Build.
type Options struct {
	TopN   int
	Groups []Group
}

// Report is the corpus-level summary.
type Report struct {
	Documents int             `json:"documents"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Coverage  Coverage        `json:"coverage"`
	Fields    []Stats         `json:"fields"`
	Groups    []GroupSummary  `json:"groups,omitempty"`
	Top       []domain.Result `json:"top"`
	Bottom    []domain.Result `json:"bottom"`
}

// Build summarizes a batch.
func Build(batch domain.Batch, opts Options) Report {
	rep := Report{
		Documents: len(batch.Results),
		Skipped:   len(batch.Skipped),
		Failed:    len(batch.Failed),
		Groups:    Partition(batch.Results, opts.Groups),
		Top:       Top(batch.Results, opts.TopN),
		Bottom:    Bottom(batch.Results, opts.TopN),
	}
	for _, set := range [][]domain.Result{batch.Results, batch.Skipped} {
		for _, r := range set {
			rep.Coverage.Found += r.WordsFound
			rep.Coverage.Missing += r.WordsMissing
		}
	}
	if total := rep.Coverage.Found + rep.Coverage.Missing; total > 0 {
		rep.Coverage.Ratio = float64(rep.Coverage.Found) / float64(total)
	}
	for _, f := range Fields {
		rep.Fields = append(rep.Fields, Describe(batch.Results, f))
	}
	return rep
}
