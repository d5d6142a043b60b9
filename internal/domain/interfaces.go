package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoEmbeddings is returned when the resolver is missing or holds no vectors.
	ErrNoEmbeddings = errors.New("embedding resolver unavailable or empty")
	// ErrInvalidDocument marks a document rejected before analysis.
	ErrInvalidDocument = errors.New("invalid document")
)

// Vector is a fixed-dimension embedding.
type Vector []float64

// Document is one unit of analysis: an identifier and its structural lines in order.
type Document struct {
	ID string `json:"id"`
	// Ordinal is the position of the document in its corpus, starting at 1.
	// Groups are defined over ordinal ranges.
	Ordinal int      `json:"ordinal,omitempty"`
	Lines   []string `json:"lines"`
}

// Validate rejects documents that cannot be analyzed.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	if d.Lines == nil {
		return fmt.Errorf("%w: %s: missing lines", ErrInvalidDocument, d.ID)
	}
	return nil
}

// LineScore is the tortuosity of a single structural line.
type LineScore struct {
	Index      int     `json:"index"`
	Vectors    int     `json:"vectors"`
	Tortuosity float64 `json:"tortuosity"`
	// Scored is false when the line had fewer than three vectors.
	Scored bool `json:"scored"`
}

// Result is the per-document tortuosity record.
type Result struct {
	ID                 string      `json:"id"`
	Ordinal            int         `json:"ordinal"`
	OverallTortuosity  float64     `json:"overall_tortuosity"`
	MeanLineTortuosity float64     `json:"mean_line_tortuosity"`
	MaxLineTortuosity  float64     `json:"max_line_tortuosity"`
	CoupletTortuosity  float64     `json:"couplet_tortuosity"`
	WordsFound         int         `json:"words_found"`
	WordsMissing       int         `json:"words_missing"`
	Lines              []LineScore `json:"lines,omitempty"`
}

// Failure records a document excluded from the batch.
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Batch is the outcome of analyzing a corpus.
type Batch struct {
	// Results holds the scored documents sorted by ordinal, then id.
	Results []Result `json:"results"`
	// Skipped holds documents with fewer than three resolved vectors.
	Skipped []Result  `json:"skipped,omitempty"`
	Failed  []Failure `json:"failed,omitempty"`
}

// Resolver looks up embedding vectors by token.
// Implementations must be safe for concurrent readers.
// Vector is only defined when Contains reports true.
type Resolver interface {
	Contains(token string) bool
	Vector(token string) Vector
}

// SizedResolver reports how many tokens it can resolve and at which dimension.
type SizedResolver interface {
	Resolver
	Len() int
	Dimension() int
}

// Prefetcher is implemented by resolvers backed by remote services. Prefetch
// returns a fresh table holding the vectors found for tokens; the caller owns
// it and runs its lookups against it.
type Prefetcher interface {
	Prefetch(ctx context.Context, tokens []string) (SizedResolver, error)
}

// AnalysisService defines the operations exposed by the application core.
type AnalysisService interface {
	Analyze(ctx context.Context, docs []Document) (Batch, error)
}
