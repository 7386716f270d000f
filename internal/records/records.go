// Package records defines the per-query analysis record format that
// Brandlens consumes.
//
// Records are produced upstream by the LLM answer-analysis layer: one
// record per monitored query, carrying the entities, sentiment, and
// quotes extracted from the generated answer.
package records

// AnalysisRecord is one previously-extracted per-query analysis result.
type AnalysisRecord struct {
	// ID identifies the source analysis run for the record.
	ID int64 `json:"id"`

	// CompetitorNames lists the competitors named in the answer.
	CompetitorNames []string `json:"competitorNames"`

	// Analysis holds the extracted entities, sentiment, and quotes.
	Analysis Analysis `json:"analysis"`
}

// Analysis is the extracted content of a single answer.
type Analysis struct {
	Products  Products  `json:"products"`
	Keywords  []Keyword `json:"keywords"`
	Sentiment Sentiment `json:"sentiment"`
	Quotes    []Quote   `json:"quotes"`
}

// Products lists the products attributed to the analyzed brand.
type Products struct {
	Brand []string `json:"brand"`
}

// Keyword is a topic mentioned in the answer.
type Keyword struct {
	Keyword string `json:"keyword"`
}

// Sentiment holds per-entity sentiment labels. Absent labels default
// to MIXED during graph construction.
type Sentiment struct {
	Brand       *SentimentLabel           `json:"brand,omitempty"`
	Competitors map[string]SentimentLabel `json:"competitors,omitempty"`
}

// SentimentLabel wraps a POSITIVE/NEGATIVE/MIXED classification.
type SentimentLabel struct {
	Label string `json:"label"`
}

// Quote is a verbatim snippet from the answer, optionally attributed
// to a named entity. An empty Entity means the quote concerns the
// analyzed brand.
type Quote struct {
	Text      string `json:"text"`
	Entity    string `json:"entity,omitempty"`
	Sentiment string `json:"sentiment"`
}
