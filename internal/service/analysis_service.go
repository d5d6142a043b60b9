package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/domain"
	"tortuosity/internal/tokenizer"
	"tortuosity/internal/trajectory"
)

type AnalysisServiceImpl struct {
	resolver domain.Resolver
	workers  int
	log      *logrus.Entry
}

// NewAnalysisService wires the pipeline around a shared read-only resolver.
// workers <= 0 uses one worker per CPU.
func NewAnalysisService(resolver domain.Resolver, workers int, log *logrus.Entry) *AnalysisServiceImpl {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &AnalysisServiceImpl{resolver: resolver, workers: workers, log: log.WithField("component", "analysis")}
}

// Analyze scores every valid document. Malformed documents are reported as
// failures and documents with fewer than three resolved vectors as skipped;
// neither aborts the batch. A missing or empty resolver does.
func (s *AnalysisServiceImpl) Analyze(ctx context.Context, docs []domain.Document) (domain.Batch, error) {
	var batch domain.Batch
	if s.resolver == nil {
		return batch, domain.ErrNoEmbeddings
	}
	start := time.Now()

	valid, failed := s.validate(docs)
	batch.Failed = failed

	// remote backends resolve against a per-batch table so concurrent
	// batches never share a map being written
	resolver := s.resolver
	if p, ok := s.resolver.(domain.Prefetcher); ok {
		lines := make([][]string, len(valid))
		for i, d := range valid {
			lines[i] = d.Lines
		}
		vocab := tokenizer.Vocabulary(lines...)
		s.log.WithField("tokens", len(vocab)).Info("prefetching vocabulary")
		fetched, err := p.Prefetch(ctx, vocab)
		if err != nil {
			return batch, fmt.Errorf("prefetch embeddings: %w", err)
		}
		resolver = fetched
	}
	if sized, ok := resolver.(domain.SizedResolver); ok && sized.Len() == 0 {
		return batch, domain.ErrNoEmbeddings
	}

	results := make([]domain.Result, len(valid))
	scorable := make([]bool, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range valid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc := valid[i]
			tr := trajectory.Build(doc, resolver)
			scorable[i] = tr.Scorable()
			if scorable[i] {
				results[i] = tr.Score(doc)
			} else {
				results[i] = domain.Result{ID: doc.ID, Ordinal: doc.Ordinal, WordsFound: tr.Found, WordsMissing: tr.Missing}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batch, err
	}

	for i, r := range results {
		if scorable[i] {
			batch.Results = append(batch.Results, r)
		} else {
			s.log.WithFields(logrus.Fields{"doc_id": r.ID, "words_found": r.WordsFound}).Debug("too few vectors, skipped")
			batch.Skipped = append(batch.Skipped, r)
		}
	}
	sortResults(batch.Results)
	sortResults(batch.Skipped)

	s.log.WithFields(logrus.Fields{
		"documents":   len(docs),
		"scored":      len(batch.Results),
		"skipped":     len(batch.Skipped),
		"failed":      len(batch.Failed),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("analysis complete")
	return batch, nil
}

// validate drops malformed and duplicate documents. Documents without an
// ordinal get their 1-based position in the input.
func (s *AnalysisServiceImpl) validate(docs []domain.Document) ([]domain.Document, []domain.Failure) {
	var valid []domain.Document
	var failed []domain.Failure
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if err := d.Validate(); err != nil {
			s.log.WithFields(logrus.Fields{"doc_id": d.ID, "position": i + 1}).WithError(err).Warn("rejecting document")
			failed = append(failed, domain.Failure{ID: d.ID, Reason: err.Error()})
			continue
		}
		if _, dup := seen[d.ID]; dup {
			err := fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidDocument, d.ID)
			s.log.WithField("doc_id", d.ID).WithError(err).Warn("rejecting document")
			failed = append(failed, domain.Failure{ID: d.ID, Reason: err.Error()})
			continue
		}
		seen[d.ID] = struct{}{}
		if d.Ordinal == 0 {
			d.Ordinal = i + 1
		}
		valid = append(valid, d)
	}
	return valid, failed
}

func sortResults(rs []domain.Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Ordinal != rs[j].Ordinal {
			return rs[i].Ordinal < rs[j].Ordinal
		}
		return aggregate.LessID(rs[i].ID, rs[j].ID)
	})
}
