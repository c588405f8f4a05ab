package common

import "time"

// ItemError records a single failed article inside a processing report.
type ItemError struct {
	ArticleID string `json:"article_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// ProcessingReport is the result of one process_news batch. It is always
// returned, even when every item failed.
type ProcessingReport struct {
	Accepted   int             `json:"accepted"`
	Duplicates int             `json:"duplicates"`
	Rejected   int             `json:"rejected"`
	Errors     []ItemError     `json:"errors,omitempty"`
	Degraded   bool            `json:"degraded"`
	Decisions  []DedupDecision `json:"decisions,omitempty"`
}

// ExpansionStep is one hop of a graph expansion path.
type ExpansionStep struct {
	From string       `json:"from"`
	To   string       `json:"to"`
	Type RelationType `json:"type"`
}

// ExpansionPath explains how an entity entered the query scope.
type ExpansionPath struct {
	EntityID string          `json:"entity_id"`
	Weight   float64         `json:"weight"`
	Steps    []ExpansionStep `json:"steps,omitempty"`
}

// RankedResult is one entry of a query_news answer. Paths is only populated
// when the caller requested an explanation.
type RankedResult struct {
	CanonicalID     string          `json:"canonical_id"`
	Title           string          `json:"title_snippet"`
	Score           float64         `json:"score"`
	Similarity      float64         `json:"similarity,omitempty"`
	EntityWeight    float64         `json:"entity_weight,omitempty"`
	PublishedAt     time.Time       `json:"published_at"`
	MatchedEntities []string        `json:"matched_entities"`
	Paths           []ExpansionPath `json:"expansion_path,omitempty"`
}
