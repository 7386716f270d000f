// Package mcp provides the MCP (Model Context Protocol) server for
// Brandlens.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brandlens/brandlens-go/internal/insights"
	"github.com/brandlens/brandlens-go/internal/ranking"
	"github.com/brandlens/brandlens-go/internal/storage"
)

// Server represents the MCP server.
type Server struct {
	store  SnapshotStore
	server *mcp.Server
}

// SnapshotStore is the slice of the storage interface the server needs.
type SnapshotStore interface {
	GetLatest(ctx context.Context, brand string) (*storage.StoredSnapshot, error)
	ListBrands(ctx context.Context) ([]string, error)
	SearchEvidence(ctx context.Context, query string, limit int) ([]storage.EvidenceResult, error)
	BrandCount() int
	Close() error
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over the given snapshot store.
func NewServer(store SnapshotStore) *Server {
	s := &Server{
		store: store,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "brandlens",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "brand_opportunity_gaps",
			Description: "List topics where competitors show negative sentiment: areas the brand can contest. Reads the latest analysis snapshot.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"brand":      {Type: "string", Description: "Analyzed brand name"},
					"competitor": {Type: "string", Description: "Restrict to gaps at this competitor"},
				},
				Required: []string{"brand"},
			},
		},
		{
			Name:        "brand_battlegrounds",
			Description: "List contested topics where both the brand and competitors are mentioned with no clear sentiment winner.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"brand": {Type: "string", Description: "Analyzed brand name"},
				},
				Required: []string{"brand"},
			},
		},
		{
			Name:        "brand_strongholds",
			Description: "List topics where an actor's positive sentiment strongly outweighs the negative.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"brand": {Type: "string", Description: "Analyzed brand name"},
					"actor": {Type: "string", Description: "Restrict to strongholds held by this actor"},
				},
				Required: []string{"brand"},
			},
		},
		{
			Name:        "brand_search_evidence",
			Description: "Full-text search over the evidence quotes backing stored findings, ranked by relevance.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "brand_rank",
			Description: "Score and order recommendation candidates against per-domain source metrics. Returns the ranked list as JSON.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"candidates": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "object"},
						Description: "Unranked recommendation candidates",
					},
					"metrics": {
						Type:        "object",
						Description: "Per-domain source metrics keyed by citation source",
					},
				},
				Required: []string{"candidates"},
			},
		},
		{
			Name:        "brand_list_brands",
			Description: "List all brands with a stored analysis snapshot.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "brandlens://overview",
			Name:        "Analysis Overview",
			Description: "High-level statistics about the stored brand analyses",
			MimeType:    "text/plain",
		},
		{
			URI:         "brandlens://schema",
			Name:        "Graph Schema",
			Description: "Description of the Brandlens knowledge graph schema",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "brand_opportunity_gaps":
		brand, _ := args["brand"].(string)
		competitor, _ := args["competitor"].(string)
		return s.handleOpportunityGaps(ctx, brand, competitor)
	case "brand_battlegrounds":
		brand, _ := args["brand"].(string)
		return s.handleBattlegrounds(ctx, brand)
	case "brand_strongholds":
		brand, _ := args["brand"].(string)
		actor, _ := args["actor"].(string)
		return s.handleStrongholds(ctx, brand, actor)
	case "brand_search_evidence":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleSearchEvidence(ctx, query, int(limit))
	case "brand_rank":
		return handleRank(args)
	case "brand_list_brands":
		return s.handleListBrands(ctx)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "brandlens://overview":
		return s.getOverview(ctx), nil
	case "brandlens://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "brandlens",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func (s *Server) handleOpportunityGaps(ctx context.Context, brand, competitor string) (string, error) {
	snap, msg := s.loadSnapshot(ctx, brand)
	if snap == nil {
		return msg, nil
	}

	findings := snap.Snapshot.OpportunityGaps
	if competitor != "" {
		findings = filterBySubject(findings, competitor)
	}

	if len(findings) == 0 {
		return fmt.Sprintf("No opportunity gaps found for '%s'.", brand), nil
	}
	return formatFindings("Opportunity Gaps", brand, findings), nil
}

func (s *Server) handleBattlegrounds(ctx context.Context, brand string) (string, error) {
	snap, msg := s.loadSnapshot(ctx, brand)
	if snap == nil {
		return msg, nil
	}

	if len(snap.Snapshot.Battlegrounds) == 0 {
		return fmt.Sprintf("No battlegrounds found for '%s'.", brand), nil
	}
	return formatFindings("Battlegrounds", brand, snap.Snapshot.Battlegrounds), nil
}

func (s *Server) handleStrongholds(ctx context.Context, brand, actor string) (string, error) {
	snap, msg := s.loadSnapshot(ctx, brand)
	if snap == nil {
		return msg, nil
	}

	findings := snap.Snapshot.Strongholds
	if actor != "" {
		findings = filterBySubject(findings, actor)
	}

	if len(findings) == 0 {
		return fmt.Sprintf("No strongholds found for '%s'.", brand), nil
	}
	return formatFindings("Strongholds", brand, findings), nil
}

func (s *Server) handleSearchEvidence(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := s.store.SearchEvidence(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d evidence quotes for '%s':\n\n", len(results), query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. \"%s\"\n", i+1, r.Quote))
		sb.WriteString(fmt.Sprintf("   Brand: %s | Topic: %s | Finding: %s | Score: %.1f\n\n",
			r.Brand, r.Topic, r.InsightType, r.Score))
	}
	sb.WriteString("Next: Use `brand_opportunity_gaps` or `brand_strongholds` for the findings these quotes back.")

	return sb.String(), nil
}

// handleRank decodes the candidate and metric arguments, runs the
// ranking engine, and returns the ordered list as JSON.
func handleRank(args map[string]any) (string, error) {
	rawCandidates, ok := args["candidates"]
	if !ok {
		return "No candidates provided", nil
	}

	data, err := json.Marshal(rawCandidates)
	if err != nil {
		return "", fmt.Errorf("encoding candidates: %w", err)
	}
	var candidates []ranking.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return "", fmt.Errorf("parsing candidates: %w", err)
	}

	metrics := make(map[string]ranking.SourceMetric)
	if rawMetrics, ok := args["metrics"]; ok {
		data, err := json.Marshal(rawMetrics)
		if err != nil {
			return "", fmt.Errorf("encoding metrics: %w", err)
		}
		if err := json.Unmarshal(data, &metrics); err != nil {
			return "", fmt.Errorf("parsing metrics: %w", err)
		}
	}

	ranked := ranking.Rank(candidates, metrics)

	out, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding ranked candidates: %w", err)
	}
	return string(out), nil
}

func (s *Server) handleListBrands(ctx context.Context) (string, error) {
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Analyzed Brands\n\n")
	if len(brands) == 0 {
		sb.WriteString("No brands analyzed yet. Run `brandlens analyze` first.\n")
		return sb.String(), nil
	}

	for _, brand := range brands {
		snap, err := s.store.GetLatest(ctx, brand)
		if err != nil || snap == nil {
			sb.WriteString(fmt.Sprintf("- %s\n", brand))
			continue
		}
		sb.WriteString(fmt.Sprintf("- **%s**: %d records, %d gaps, %d battlegrounds, %d strongholds (analyzed %s)\n",
			brand,
			snap.RecordCount,
			len(snap.Snapshot.OpportunityGaps),
			len(snap.Snapshot.Battlegrounds),
			len(snap.Snapshot.Strongholds),
			snap.CreatedAt.Format("2006-01-02 15:04")))
	}

	return sb.String(), nil
}

// loadSnapshot fetches a brand's snapshot, returning a user-facing
// message instead when it is missing.
func (s *Server) loadSnapshot(ctx context.Context, brand string) (*storage.StoredSnapshot, string) {
	if brand == "" {
		return nil, "No brand provided"
	}

	snap, err := s.store.GetLatest(ctx, brand)
	if err != nil || snap == nil {
		return nil, fmt.Sprintf("No analysis found for '%s'. Run `brandlens analyze` first.", brand)
	}
	return snap, ""
}

func filterBySubject(findings []insights.Insight, subject string) []insights.Insight {
	filtered := make([]insights.Insight, 0, len(findings))
	for _, f := range findings {
		if f.Subject == subject {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// formatFindings renders an insight list as markdown.
func formatFindings(title, brand string, findings []insights.Insight) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s for %s (%d)\n\n", title, brand, len(findings)))

	for i, f := range findings {
		sb.WriteString(fmt.Sprintf("%d. **%s** (score %.2f)\n", i+1, f.Topic, f.Score))
		if f.Context != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", f.Context))
		}
		for _, quote := range f.Evidence {
			sb.WriteString(fmt.Sprintf("   > %s\n", quote))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Use `brand_search_evidence` to dig into the quotes behind a finding.")

	return sb.String()
}

// Resource Handlers

func (s *Server) getOverview(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("# Brandlens Analysis Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Stored brands:** %d\n\n", s.store.BrandCount()))

	brands, err := s.store.ListBrands(ctx)
	if err == nil && len(brands) > 0 {
		sb.WriteString("## Brands\n\n")
		for _, brand := range brands {
			sb.WriteString(fmt.Sprintf("- %s\n", brand))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Analysis Shape\n\n")
	sb.WriteString("Each analysis builds a knowledge graph from exported query\n")
	sb.WriteString("records, annotates it with PageRank centrality and community\n")
	sb.WriteString("detection, and distills it into opportunity gaps, battlegrounds,\n")
	sb.WriteString("strongholds, and keyword quadrant data.\n")

	return sb.String()
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# Brandlens Knowledge Graph Schema\n\n")
	sb.WriteString("## Node Types\n\n")
	sb.WriteString("| Type | Description | Key Properties |\n")
	sb.WriteString("|------|-------------|----------------|\n")
	sb.WriteString("| `brand` | The analyzed brand | label, centrality, community |\n")
	sb.WriteString("| `product` | Product mentioned alongside the brand | label |\n")
	sb.WriteString("| `competitor` | Named competitor | label |\n")
	sb.WriteString("| `topic` | Keyword or theme | label, centrality, community |\n")
	sb.WriteString("| `sentiment` | POSITIVE, NEGATIVE, or MIXED | label |\n")
	sb.WriteString("\n## Edge Types\n\n")
	sb.WriteString("| Type | Source -> Target | Properties |\n")
	sb.WriteString("|------|------------------|------------|\n")
	sb.WriteString("| `mentioned_with` | brand/product/competitor co-occurrence | weight |\n")
	sb.WriteString("| `has_attribute` | actor -> topic | weight |\n")
	sb.WriteString("| `leads_to` | topic -> sentiment | weight, evidence quotes |\n")
	sb.WriteString("| `competes_with` | brand -> competitor | weight |\n")
	sb.WriteString("\nEdge weight counts co-occurrences across records; evidence\n")
	sb.WriteString("quotes keep the five most recent verbatim mentions.\n")

	return sb.String()
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
