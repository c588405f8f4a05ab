package common

import "time"

// EntityType classifies a resolved financial entity.
type EntityType string

const (
	EntityCompany    EntityType = "COMPANY"
	EntitySector     EntityType = "SECTOR"
	EntityRegulator  EntityType = "REGULATOR"
	EntityInstrument EntityType = "INSTRUMENT"
)

// RelationType classifies a directed edge in the impact graph.
type RelationType string

const (
	RelationSupplies  RelationType = "SUPPLIES"
	RelationRegulates RelationType = "REGULATES"
	RelationCompetes  RelationType = "COMPETES"
	RelationAffects   RelationType = "AFFECTS"
)

// RawArticle is the untrusted input record handed to the pipeline. Date is
// kept as the raw string until the canonicalizer parses it.
type RawArticle struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

// Article is a canonicalized input record. Articles are append-only: once
// created they are never mutated except for the DuplicateOf back-reference
// set when the dedup engine collapses them into an existing canonical
// article.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Language    string    `json:"language"`
	Events      []string  `json:"events,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`

	// Enrichment filled in by pipeline stages after canonicalization.
	Embedding []float32 `json:"-"`
	Mentions  []Mention `json:"-"`
	EntityIDs []string  `json:"entity_ids,omitempty"`
	Sentiment float64   `json:"sentiment"`
}

// Mention is a raw recognizer span before entity resolution.
type Mention struct {
	Text   string     `json:"text"`
	Offset int        `json:"offset"`
	Type   EntityType `json:"type"`
}

// CanonicalArticle is the deduplicated representative of one news event. Its
// embedding is the running centroid over all member articles, and its entity
// set is the union over members.
type CanonicalArticle struct {
	ID          string    `json:"canonical_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Sources     []string  `json:"sources"`
	PublishedAt time.Time `json:"published_at"`
	Language    string    `json:"language"`
	MemberIDs   []string  `json:"member_article_ids"`
	Embedding   []float32 `json:"-"`
	EntityIDs   []string  `json:"entity_ids"`
	Events      []string  `json:"events,omitempty"`
	Sentiment   float64   `json:"sentiment"`
}

// Entity is a resolved financial actor with identity stable across runs.
// Aliases only grow; removal would orphan historical links.
type Entity struct {
	ID      string     `json:"entity_id"`
	Name    string     `json:"canonical_name"`
	Type    EntityType `json:"type"`
	Symbol  string     `json:"symbol,omitempty"`
	Aliases []string   `json:"aliases"`
}

// Relation is a directed, typed, confidence-scored edge of the impact graph.
// At most one Relation exists per (Source, Target, Type) triple; repeated
// evidence updates Confidence instead of inserting duplicates.
type Relation struct {
	Source        string       `json:"source_entity_id"`
	Target        string       `json:"target_entity_id"`
	Type          RelationType `json:"relation_type"`
	Confidence    float64      `json:"confidence"`
	Corroboration int          `json:"corroboration"`
	SentimentSum  float64      `json:"sentiment_sum"`
	SentimentMin  float64      `json:"sentiment_min"`
	SentimentMax  float64      `json:"sentiment_max"`
	SupportIDs    []string     `json:"supporting_article_ids"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// IndexEntry is the retrieval-index record for one canonical article.
type IndexEntry struct {
	CanonicalID string    `json:"canonical_id"`
	Embedding   []float32 `json:"-"`
	EntityIDs   []string  `json:"entity_ids"`
	PublishedAt time.Time `json:"published_at"`
}

// DedupDecision is the observability record emitted for every dedup
// decision, consumed by the threshold tuner.
type DedupDecision struct {
	ID           string    `json:"id"`
	ArticleID    string    `json:"article_id"`
	Duplicate    bool      `json:"duplicate"`
	CanonicalID  string    `json:"canonical_id,omitempty"`
	Similarity   float64   `json:"similarity"`
	Threshold    float64   `json:"threshold"`
	Corroborated bool      `json:"corroborated"`
	DecidedAt    time.Time `json:"decided_at"`
}

// Stats summarizes the current state of the knowledge base.
type Stats struct {
	Articles   int     `json:"articles"`
	Canonicals int     `json:"canonical_articles"`
	Entities   int     `json:"entities"`
	Relations  int     `json:"relations"`
	DedupRatio float64 `json:"dedup_ratio"`
}
