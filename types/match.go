package types

// MatchEntityType identifies which entity kind a match candidate refers to.
type MatchEntityType string

const (
	MatchEntityCustomer MatchEntityType = "customer"
	MatchEntityProject  MatchEntityType = "project"
)

// MatchCandidate is a scored link from extracted data to an existing stored
// entity. Multiple candidates may exist per extraction; at most one is
// selected on the preview.
type MatchCandidate struct {
	EntityType      MatchEntityType `json:"entityType"`
	ExistingID      string          `json:"existingId"`
	SimilarityScore int             `json:"similarityScore"` // 0-100
	MatchedFields   []string        `json:"matchedFields"`
}
