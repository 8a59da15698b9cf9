// Package matcher resolves extracted entity fields against a user's existing
// customers and projects, producing ranked match candidates.
package matcher

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// Project fields carry no email term; name dominates the blend.
const (
	projectNameWeight        = 0.7
	projectDescriptionWeight = 0.3
)

// matchedFieldFloor is the per-field similarity above which a field is
// reported in MatchedFields (explainability for the reviewer).
const matchedFieldFloor = 80

// Matcher scores extracted fields against stored entities. The candidate
// pool is always restricted to the given owner: cross-owner matches are a
// correctness violation, not just a privacy one. Scoring is deterministic
// for identical input.
type Matcher struct {
	customers store.CustomerStore
	projects  store.ProjectStore
	cfg       config.ReconciliationConfig
}

// New creates a Matcher over the given stores with the given scoring policy.
func New(customers store.CustomerStore, projects store.ProjectStore, cfg config.ReconciliationConfig) *Matcher {
	return &Matcher{customers: customers, projects: projects, cfg: cfg}
}

// MatchCustomer returns candidates for the extracted customer fields, highest
// similarity first. Candidates below the configured floor are dropped; an
// empty result means the preview should create a new customer. Ties are
// broken by most recently updated entity.
func (m *Matcher) MatchCustomer(ctx context.Context, fields types.CustomerFields, ownerID string) ([]types.MatchCandidate, error) {
	existing, err := m.customers.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.MatchCandidate, 0, len(existing))
	for _, c := range existing {
		score, matched := m.scoreCustomer(fields, c)
		if score < m.cfg.CandidateFloor {
			continue
		}
		candidates = append(candidates, types.MatchCandidate{
			EntityType:      types.MatchEntityCustomer,
			ExistingID:      c.ID,
			SimilarityScore: score,
			MatchedFields:   matched,
		})
	}

	// ListByOwner orders by recency; a stable sort keeps that order as the
	// tie-break within equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	return candidates, nil
}

// MatchProject returns candidates for the extracted project fields, ranked
// like MatchCustomer.
func (m *Matcher) MatchProject(ctx context.Context, fields types.ProjectFields, ownerID string) ([]types.MatchCandidate, error) {
	existing, err := m.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.MatchCandidate, 0, len(existing))
	for _, p := range existing {
		score, matched := scoreProject(fields, p)
		if score < m.cfg.CandidateFloor {
			continue
		}
		candidates = append(candidates, types.MatchCandidate{
			EntityType:      types.MatchEntityProject,
			ExistingID:      p.ID,
			SimilarityScore: score,
			MatchedFields:   matched,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	return candidates, nil
}

// scoreCustomer blends name, company and email similarity. Weights of fields
// absent from the extraction are redistributed over the present ones, so a
// document carrying only a customer name can still clear the use-existing
// cutoff on a strong name match.
func (m *Matcher) scoreCustomer(fields types.CustomerFields, c *types.Customer) (int, []string) {
	type term struct {
		field  string
		weight float64
		score  int
	}
	var terms []term

	if name := normalize(fields.Name.Value); name != "" {
		terms = append(terms, term{"name", m.cfg.NameWeight, similarity100(name, normalize(c.Name))})
	}
	if company := normalize(fields.Company.Value); company != "" {
		terms = append(terms, term{"company", m.cfg.CompanyWeight, similarity100(company, normalize(c.Company))})
	}
	if email := normalize(fields.Email.Value); email != "" {
		emailScore := 0
		if email == normalize(c.Email) {
			emailScore = 100
		}
		terms = append(terms, term{"email", m.cfg.EmailWeight, emailScore})
	}
	if len(terms) == 0 {
		return 0, nil
	}

	var weighted, totalWeight float64
	var matched []string
	for _, t := range terms {
		weighted += t.weight * float64(t.score)
		totalWeight += t.weight
		if t.score >= matchedFieldFloor {
			matched = append(matched, t.field)
		}
	}
	return roundHalfUp(weighted / totalWeight), matched
}

func scoreProject(fields types.ProjectFields, p *types.Project) (int, []string) {
	name := normalize(fields.Name.Value)
	if name == "" {
		return 0, nil
	}
	nameScore := similarity100(name, normalize(p.Name))

	desc := normalize(fields.Description.Value)
	if desc == "" {
		if nameScore >= matchedFieldFloor {
			return nameScore, []string{"name"}
		}
		return nameScore, nil
	}

	descScore := similarity100(desc, normalize(p.Description))
	score := roundHalfUp(projectNameWeight*float64(nameScore) + projectDescriptionWeight*float64(descScore))

	var matched []string
	if nameScore >= matchedFieldFloor {
		matched = append(matched, "name")
	}
	if descScore >= matchedFieldFloor {
		matched = append(matched, "description")
	}
	return score, matched
}

// FieldSimilarity scores two raw field values on the 0-100 scale used for
// candidates, folding case and whitespace first. Batch pattern detection
// uses it to cluster near-duplicate extracted names.
func FieldSimilarity(a, b string) int {
	return similarity100(normalize(a), normalize(b))
}

// similarity100 is the normalized string-edit-distance similarity scaled to
// 0-100. Both inputs are expected to be normalized already.
func similarity100(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	return roundHalfUp(levenshtein.Similarity(a, b, levenshtein.NewParams()) * 100)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
