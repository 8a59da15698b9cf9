// Package scorer combines per-field extraction confidence with match
// similarity into entity and document confidence figures.
package scorer

import (
	"math"

	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// Scores is the scorer output. All values are integers 0-100; fractional
// results round half-up.
type Scores struct {
	CustomerMatchConfidence   int
	ProjectMatchConfidence    int
	OverallDocumentConfidence int
}

// Scorer computes confidence figures under a configurable weighting policy.
type Scorer struct {
	cfg config.ReconciliationConfig
}

// New creates a Scorer with the given policy.
func New(cfg config.ReconciliationConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score derives the confidence figures for one extraction.
//
// When an existing entity was selected (top candidate at or above the merge
// cutoff), the entity confidence is that candidate's similarity: it answers
// "how sure are we this is the same record". Otherwise it falls back to the
// extraction's own per-field average: "how sure are we this new-entity data
// was read correctly". Task clarity carries half the document weight because
// task lines drive billing accuracy.
func (s *Scorer) Score(raw *types.RawExtraction, customerCandidates, projectCandidates []types.MatchCandidate, qualities []types.TaskQuality) Scores {
	customer := s.entityConfidence(customerCandidates, raw.CustomerFieldAverageConfidence())
	project := s.entityConfidence(projectCandidates, raw.ProjectFieldAverageConfidence())
	tasks := MeanClarityScore(qualities)

	return Scores{
		CustomerMatchConfidence:   customer,
		ProjectMatchConfidence:    project,
		OverallDocumentConfidence: s.Overall(customer, project, tasks, raw.ProjectFields.HasData()),
	}
}

// Overall recombines already-computed component confidences under the
// configured weights. Used when task qualities change after assembly and the
// document figure must be refreshed without re-matching.
//
// A document with no project section carries no project evidence either way,
// so the project term drops out and the remaining weights renormalize instead
// of the zero dragging the document figure down.
func (s *Scorer) Overall(customer, project, tasks int, hasProject bool) int {
	cw := s.cfg.CustomerConfidenceWeight
	pw := s.cfg.ProjectConfidenceWeight
	tw := s.cfg.TaskConfidenceWeight

	if !hasProject {
		return roundHalfUp(float64(customer*cw+tasks*tw) / float64(cw+tw))
	}
	return roundHalfUp(float64(customer*cw+project*pw+tasks*tw) / float64(cw+pw+tw))
}

func (s *Scorer) entityConfidence(candidates []types.MatchCandidate, extractionAverage int) int {
	if len(candidates) > 0 && candidates[0].SimilarityScore >= s.cfg.MergeCutoff {
		return candidates[0].SimilarityScore
	}
	return extractionAverage
}

// MeanClarityScore returns the mean TaskQuality clarity score, rounded
// half-up. An extraction with no task lines scores zero.
func MeanClarityScore(qualities []types.TaskQuality) int {
	if len(qualities) == 0 {
		return 0
	}
	sum := 0
	for _, q := range qualities {
		sum += q.ClarityScore
	}
	return roundHalfUp(float64(sum) / float64(len(qualities)))
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
