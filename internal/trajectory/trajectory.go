// Package trajectory turns documents into paths through embedding space and
// slices those paths along structural line boundaries.
//
// Tokens without an embedding are dropped rather than zero-filled, so the
// boundary table counts found vectors, not words. Two lines that lose the same
// number of tokens can therefore produce identical slices.
package trajectory

import (
	"tortuosity/internal/domain"
	"tortuosity/internal/tokenizer"
	"tortuosity/internal/tortuosity"
)

// Trajectory is the ordered vector path of one document.
type Trajectory struct {
	Vectors []domain.Vector
	// Boundaries has one entry per line plus a leading 0. Line i spans
	// Vectors[Boundaries[i]:Boundaries[i+1]].
	Boundaries []int
	Found      int
	Missing    int
}

// Build resolves every token of the document in reading order.
func Build(doc domain.Document, resolver domain.Resolver) Trajectory {
	t := Trajectory{Boundaries: make([]int, 1, len(doc.Lines)+1)}
	for _, line := range doc.Lines {
		for _, tok := range tokenizer.Tokenize(line) {
			if !resolver.Contains(tok) {
				t.Missing++
				continue
			}
			t.Vectors = append(t.Vectors, resolver.Vector(tok))
			t.Found++
		}
		t.Boundaries = append(t.Boundaries, t.Found)
	}
	return t
}

// LineCount is the number of structural lines.
func (t Trajectory) LineCount() int { return len(t.Boundaries) - 1 }

// Line returns the sub-trajectory of line i.
func (t Trajectory) Line(i int) []domain.Vector {
	return t.Vectors[t.Boundaries[i]:t.Boundaries[i+1]]
}

// Couplet returns the vectors of the final two lines. It is nil when the
// document has fewer than three lines.
func (t Trajectory) Couplet() []domain.Vector {
	if t.LineCount() < 3 {
		return nil
	}
	return t.Vectors[t.Boundaries[len(t.Boundaries)-3]:]
}

// LineScores scores each line. Lines shorter than tortuosity.MinVectors are
// reported unscored.
func (t Trajectory) LineScores() []domain.LineScore {
	out := make([]domain.LineScore, 0, t.LineCount())
	for i := 0; i < t.LineCount(); i++ {
		seg := t.Line(i)
		ls := domain.LineScore{Index: i, Vectors: len(seg)}
		if len(seg) >= tortuosity.MinVectors {
			ls.Tortuosity = tortuosity.Compute(seg)
			ls.Scored = true
		}
		out = append(out, ls)
	}
	return out
}

// Scorable reports whether the whole path is long enough to score.
func (t Trajectory) Scorable() bool { return t.Found >= tortuosity.MinVectors }

// Score computes the full result record for the document.
func (t Trajectory) Score(doc domain.Document) domain.Result {
	lines := t.LineScores()
	res := domain.Result{
		ID:                doc.ID,
		Ordinal:           doc.Ordinal,
		OverallTortuosity: tortuosity.Compute(t.Vectors),
		CoupletTortuosity: tortuosity.Compute(t.Couplet()),
		WordsFound:        t.Found,
		WordsMissing:      t.Missing,
		Lines:             lines,
	}
	res.MeanLineTortuosity, res.MaxLineTortuosity = lineSummary(lines)
	return res
}

func lineSummary(lines []domain.LineScore) (mean, peak float64) {
	n := 0
	sum := 0.0
	for _, ls := range lines {
		if !ls.Scored {
			continue
		}
		if n == 0 || ls.Tortuosity > peak {
			peak = ls.Tortuosity
		}
		sum += ls.Tortuosity
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), peak
}
