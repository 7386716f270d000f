// Package ingestion provides the analysis pipeline for Brandlens.
package ingestion

import (
	"github.com/brandlens/brandlens-go/internal/graph"
	"github.com/brandlens/brandlens-go/internal/records"
)

// brandEntity is the literal entity tag some extractors emit for quotes
// about the analyzed brand, alongside the brand name or an empty entity.
const brandEntity = "Brand"

// BuildGraph constructs a fresh knowledge graph from a batch of
// analysis records for the given brand.
//
// Each call returns its own graph instance, so concurrent analyses of
// different brands never share state. Malformed records degrade to
// partial no-ops inside the graph primitives; they never abort the
// batch.
func BuildGraph(brandName string, recs []records.AnalysisRecord) *graph.KnowledgeGraph {
	g := graph.NewKnowledgeGraph()

	g.EnsureNode(brandName, graph.NodeBrand)
	for _, label := range graph.SentimentLabels() {
		g.EnsureNode(label, graph.NodeSentiment)
	}

	for _, rec := range recs {
		addRecord(g, brandName, rec)
	}

	return g
}

// addRecord folds a single record into the graph.
func addRecord(g *graph.KnowledgeGraph, brandName string, rec records.AnalysisRecord) {
	products := rec.Analysis.Products.Brand

	for _, product := range products {
		g.EnsureNode(product, graph.NodeProduct)
		g.EnsureEdge(brandName, product, graph.EdgeMentionedWith, rec.ID, nil)
	}

	brandSentiment := sentimentOrMixed(rec.Analysis.Sentiment.Brand)
	brandQuotes := quotesForBrand(rec.Analysis.Quotes, brandName)

	for _, kw := range rec.Analysis.Keywords {
		topic := kw.Keyword
		g.EnsureNode(topic, graph.NodeTopic)

		// Topics are attributed to every product mentioned in the
		// record, or to the brand directly when none are.
		if len(products) > 0 {
			for _, product := range products {
				g.EnsureEdge(product, topic, graph.EdgeHasAttribute, rec.ID, nil)
			}
		} else {
			g.EnsureEdge(brandName, topic, graph.EdgeHasAttribute, rec.ID, nil)
		}

		g.EnsureEdge(topic, brandSentiment, graph.EdgeLeadsTo, rec.ID, brandQuotes)
	}

	for _, competitor := range rec.CompetitorNames {
		g.EnsureNode(competitor, graph.NodeCompetitor)

		compSentiment := competitorSentiment(rec.Analysis.Sentiment, competitor)
		compQuotes := quotesForEntity(rec.Analysis.Quotes, competitor)

		// A topic can accumulate leads_to weight from both the brand
		// pass and this pass within one record; that reflects real
		// co-occurrence and is kept.
		for _, kw := range rec.Analysis.Keywords {
			topic := kw.Keyword
			g.EnsureEdge(competitor, topic, graph.EdgeHasAttribute, rec.ID, nil)
			g.EnsureEdge(topic, compSentiment, graph.EdgeLeadsTo, rec.ID, compQuotes)
		}
	}
}

// sentimentOrMixed returns the label, defaulting to MIXED when the
// sentiment is absent or carries an unrecognized label.
func sentimentOrMixed(s *records.SentimentLabel) string {
	if s == nil || !graph.IsSentimentLabel(s.Label) {
		return graph.SentimentMixed
	}
	return s.Label
}

// competitorSentiment returns the sentiment label recorded for the
// named competitor, defaulting to MIXED.
func competitorSentiment(s records.Sentiment, competitor string) string {
	if label, ok := s.Competitors[competitor]; ok && graph.IsSentimentLabel(label.Label) {
		return label.Label
	}
	return graph.SentimentMixed
}

// quotesForBrand returns the quote texts attributable to the brand:
// quotes with no entity, the brand's name, or the literal "Brand" tag.
func quotesForBrand(quotes []records.Quote, brandName string) []string {
	var texts []string
	for _, q := range quotes {
		if q.Entity == "" || q.Entity == brandName || q.Entity == brandEntity {
			texts = append(texts, q.Text)
		}
	}
	return texts
}

// quotesForEntity returns the quote texts attributed to the named entity.
func quotesForEntity(quotes []records.Quote, entity string) []string {
	var texts []string
	for _, q := range quotes {
		if q.Entity == entity {
			texts = append(texts, q.Text)
		}
	}
	return texts
}
