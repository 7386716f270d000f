// Package cmd provides CLI command implementations for Brandlens.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/brandlens/brandlens-go/internal/ingestion"
	"github.com/brandlens/brandlens-go/internal/insights"
	"github.com/brandlens/brandlens-go/internal/ranking"
	"github.com/brandlens/brandlens-go/internal/records"
	"github.com/brandlens/brandlens-go/internal/storage"
	"github.com/brandlens/brandlens-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// dataDirName is the per-directory state folder, alongside the records.
const dataDirName = ".brandlens"

// AnalyzeCmd builds the knowledge graph from exported records and
// stores the derived insight snapshot.
type AnalyzeCmd struct {
	Brand string `arg:"" help:"Brand name to analyze"`
	Dir   string `arg:"" optional:"" default:"." help:"Directory of exported record files"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run() error {
	ctx := context.Background()
	recordsDir, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(recordsDir)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", recordsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", recordsDir)
	}

	color.Green("Analyzing %s from %s", c.Brand, recordsDir)

	recs, err := records.LoadDir(recordsDir)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("no record files found in %s", recordsDir)
	}

	dataDir := filepath.Join(recordsDir, dataDirName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", dataDirName, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(dataDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	progress := func(phase string, pct float64) {
		fmt.Printf("\r\033[K%s (%.0f%%)", phase, pct*100)
	}

	_, _, result, err := ingestion.RunPipeline(ctx, c.Brand, recs, store, progress)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	fmt.Println() // Newline after progress

	meta := map[string]any{
		"version":     Version,
		"brand":       c.Brand,
		"records_dir": recordsDir,
		"stats":       result,
		"analyzed_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(filepath.Join(dataDir, "meta.json"), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	color.Green("\n✓ Analysis complete")
	fmt.Printf("  Records:          %d\n", result.Records)
	fmt.Printf("  Nodes:            %d\n", result.Nodes)
	fmt.Printf("  Edges:            %d\n", result.Edges)
	fmt.Printf("  Communities:      %d\n", result.Communities)
	fmt.Printf("  Opportunity gaps: %d\n", result.OpportunityGaps)
	fmt.Printf("  Battlegrounds:    %d\n", result.Battlegrounds)
	fmt.Printf("  Strongholds:      %d\n", result.Strongholds)
	fmt.Printf("  Duration:         %.2fs\n", result.DurationSecs)

	return nil
}

// GapsCmd lists opportunity gaps from the latest snapshot.
type GapsCmd struct {
	Brand      string `arg:"" optional:"" help:"Brand name (defaults to the last analyzed brand)"`
	Competitor string `short:"c" help:"Restrict to gaps at this competitor"`
}

// Run executes the gaps command.
func (c *GapsCmd) Run() error {
	snap, store, err := loadSnapshot(c.Brand)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	findings := snap.Snapshot.OpportunityGaps
	if c.Competitor != "" {
		findings = filterBySubject(findings, c.Competitor)
	}

	printFindings("Opportunity Gaps", snap.Brand, findings)
	return nil
}

// BattlegroundsCmd lists contested topics from the latest snapshot.
type BattlegroundsCmd struct {
	Brand string `arg:"" optional:"" help:"Brand name (defaults to the last analyzed brand)"`
}

// Run executes the battlegrounds command.
func (c *BattlegroundsCmd) Run() error {
	snap, store, err := loadSnapshot(c.Brand)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	printFindings("Battlegrounds", snap.Brand, snap.Snapshot.Battlegrounds)
	return nil
}

// StrongholdsCmd lists sentiment strongholds from the latest snapshot.
type StrongholdsCmd struct {
	Brand string `arg:"" optional:"" help:"Brand name (defaults to the last analyzed brand)"`
	Actor string `short:"a" help:"Restrict to strongholds held by this actor"`
}

// Run executes the strongholds command.
func (c *StrongholdsCmd) Run() error {
	snap, store, err := loadSnapshot(c.Brand)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	findings := snap.Snapshot.Strongholds
	if c.Actor != "" {
		findings = filterBySubject(findings, c.Actor)
	}

	printFindings("Strongholds", snap.Brand, findings)
	return nil
}

// RankCmd scores recommendation candidates against source metrics.
type RankCmd struct {
	Candidates string `arg:"" help:"JSON file of unranked candidates"`
	Metrics    string `short:"m" help:"JSON file of per-domain source metrics"`
}

// Run executes the rank command.
func (c *RankCmd) Run() error {
	var candidates []ranking.Candidate
	if err := readJSONFile(c.Candidates, &candidates); err != nil {
		return fmt.Errorf("loading candidates: %w", err)
	}

	metrics := make(map[string]ranking.SourceMetric)
	if c.Metrics != "" {
		if err := readJSONFile(c.Metrics, &metrics); err != nil {
			return fmt.Errorf("loading metrics: %w", err)
		}
	}

	ranked := ranking.Rank(candidates, metrics)

	out, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))

	return nil
}

// SearchCmd searches stored evidence quotes.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the search command.
func (c *SearchCmd) Run() error {
	ctx := context.Background()
	store, err := loadStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.SearchEvidence(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		fmt.Printf("\n%d. \"%s\"\n", i+1, r.Quote)
		fmt.Printf("   Brand: %s | Topic: %s | Finding: %s\n", r.Brand, r.Topic, r.InsightType)
		fmt.Printf("   Score: %.1f\n", r.Score)
	}

	return nil
}

// WatchCmd re-analyzes whenever the records directory changes.
type WatchCmd struct {
	Brand string `arg:"" optional:"" help:"Brand name (defaults to the last analyzed brand)"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	recordsDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	brand, err := resolveBrand(c.Brand)
	if err != nil {
		return err
	}

	store, err := loadStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Println("## Watch Mode")
	fmt.Printf("Watching %s for record changes (Ctrl+C to stop)\n\n", recordsDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	onRebuild := func(result *ingestion.PipelineResult, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild error: %v\n", err)
			return
		}
		color.Green("✓ Re-analyzed %s: %d records, %d gaps, %d battlegrounds, %d strongholds",
			brand, result.Records, result.OpportunityGaps, result.Battlegrounds, result.Strongholds)
	}

	err = ingestion.WatchRecords(ctx, brand, recordsDir, store, onRebuild)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()
	store, err := loadStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store)

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional watch mode.
type ServeCmd struct {
	Watch bool   `short:"w" help:"Re-analyze on record changes"`
	Brand string `help:"Brand name for watch mode (defaults to the last analyzed brand)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	store, err := loadStore(!c.Watch)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store)

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		recordsDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		brand, err := resolveBrand(c.Brand)
		if err != nil {
			return err
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := ingestion.WatchRecords(watchCtx, brand, recordsDir, store, nil)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "Record watching enabled")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ListCmd lists all analyzed brands.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run() error {
	ctx := context.Background()
	store, err := loadStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	brands, err := store.ListBrands(ctx)
	if err != nil {
		return fmt.Errorf("listing brands: %w", err)
	}

	if len(brands) == 0 {
		fmt.Println("No analyzed brands found")
		return nil
	}

	fmt.Println("Analyzed brands:")
	for _, brand := range brands {
		snap, err := store.GetLatest(ctx, brand)
		if err != nil || snap == nil {
			fmt.Printf("\n  %s\n", brand)
			continue
		}
		fmt.Printf("\n  %s\n", brand)
		fmt.Printf("    Records:       %d\n", snap.RecordCount)
		fmt.Printf("    Gaps:          %d\n", len(snap.Snapshot.OpportunityGaps))
		fmt.Printf("    Battlegrounds: %d\n", len(snap.Snapshot.Battlegrounds))
		fmt.Printf("    Strongholds:   %d\n", len(snap.Snapshot.Strongholds))
		fmt.Printf("    Analyzed:      %s\n", snap.CreatedAt.Format(time.RFC3339))
	}

	return nil
}

// StatusCmd shows analysis status for the current directory.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	recordsDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	metaPath := filepath.Join(recordsDir, dataDirName, "meta.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no analysis found at %s. Run 'brandlens analyze' first", recordsDir)
		}
		return fmt.Errorf("reading meta.json: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing meta.json: %w", err)
	}

	fmt.Printf("Analysis status for %s\n", recordsDir)
	if version, ok := meta["version"].(string); ok {
		fmt.Printf("  Version:       %s\n", version)
	}
	if brand, ok := meta["brand"].(string); ok {
		fmt.Printf("  Brand:         %s\n", brand)
	}
	if analyzedAt, ok := meta["analyzed_at"].(string); ok {
		fmt.Printf("  Last analyzed: %s\n", analyzedAt)
	}
	if stats, ok := meta["stats"].(map[string]any); ok {
		if v, ok := stats["Records"].(float64); ok {
			fmt.Printf("  Records:       %.0f\n", v)
		}
		if v, ok := stats["Nodes"].(float64); ok {
			fmt.Printf("  Nodes:         %.0f\n", v)
		}
		if v, ok := stats["Edges"].(float64); ok {
			fmt.Printf("  Edges:         %.0f\n", v)
		}
	}

	return nil
}

// CleanCmd deletes analysis state for the current directory.
type CleanCmd struct {
	Brand string `help:"Delete only this brand's snapshot"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	recordsDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	dataDir := filepath.Join(recordsDir, dataDirName)
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return fmt.Errorf("no analysis found at %s. Nothing to clean", recordsDir)
	}

	if c.Brand != "" {
		store, err := loadStore(false)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		quotes, err := store.DeleteBrand(context.Background(), c.Brand)
		if err != nil {
			return fmt.Errorf("deleting brand: %w", err)
		}
		color.Green("Deleted snapshot for %s (%d indexed quotes)", c.Brand, quotes)
		return nil
	}

	if !c.Force {
		fmt.Printf("Delete analysis state at %s? [y/N] ", dataDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("deleting analysis state: %w", err)
	}

	color.Green("Deleted %s", dataDir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// loadStore opens the badger store under the working directory.
func loadStore(readOnly bool) (*storage.BadgerBackend, error) {
	recordsDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := filepath.Join(recordsDir, dataDirName, "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no analysis found at %s. Run 'brandlens analyze' first", recordsDir)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return store, nil
}

// resolveBrand returns the given brand, falling back to the one in
// the working directory's meta.json.
func resolveBrand(brand string) (string, error) {
	if brand != "" {
		return brand, nil
	}

	recordsDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	metaBytes, err := os.ReadFile(filepath.Join(recordsDir, dataDirName, "meta.json"))
	if err != nil {
		return "", fmt.Errorf("no brand given and no previous analysis found. Run 'brandlens analyze <brand>' first")
	}

	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return "", fmt.Errorf("parsing meta.json: %w", err)
	}

	name, ok := meta["brand"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("meta.json carries no brand name")
	}
	return name, nil
}

// loadSnapshot opens the store read-only and fetches the brand's
// latest snapshot.
func loadSnapshot(brand string) (*storage.StoredSnapshot, *storage.BadgerBackend, error) {
	name, err := resolveBrand(brand)
	if err != nil {
		return nil, nil, err
	}

	store, err := loadStore(true)
	if err != nil {
		return nil, nil, err
	}

	snap, err := store.GetLatest(context.Background(), name)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if snap == nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("no analysis found for '%s'. Run 'brandlens analyze %s' first", name, name)
	}

	return snap, store, nil
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

// printFindings renders an insight list to stdout.
func printFindings(title, brand string, findings []insights.Insight) {
	fmt.Printf("## %s for %s\n", title, brand)

	if len(findings) == 0 {
		fmt.Println("None found")
		return
	}

	for i, f := range findings {
		fmt.Printf("\n%d. %s (score %.2f)\n", i+1, f.Topic, f.Score)
		if f.Context != "" {
			fmt.Printf("   %s\n", f.Context)
		}
		for _, quote := range f.Evidence {
			fmt.Printf("   > %s\n", quote)
		}
	}
}

// readJSONFile reads and decodes a JSON file into v.
func readJSONFile(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(content, v)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Analyze       AnalyzeCmd       `cmd:"" help:"Analyze exported records into an insight snapshot"`
	Gaps          GapsCmd          `cmd:"" help:"List opportunity gaps at competitors"`
	Battlegrounds BattlegroundsCmd `cmd:"" help:"List contested topics"`
	Strongholds   StrongholdsCmd   `cmd:"" help:"List sentiment strongholds"`
	Rank          RankCmd          `cmd:"" help:"Score and order recommendation candidates"`
	Search        SearchCmd        `cmd:"" help:"Search stored evidence quotes"`
	Watch         WatchCmd         `cmd:"" help:"Re-analyze on record changes"`
	MCP           MCPCmd           `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve         ServeCmd         `cmd:"" help:"Start MCP server with optional watch mode"`
	List          ListCmd          `cmd:"" help:"List all analyzed brands"`
	Status        StatusCmd        `cmd:"" help:"Show analysis status for current directory"`
	Clean         CleanCmd         `cmd:"" help:"Delete analysis state"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("brandlens"),
		kong.Description("Graph-powered competitive intelligence engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
