package autocorrect

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MartyZhou/selenium-selector-autocorrect/ledger"
	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

var testMCPImpl = &mcp.Implementation{Name: "autocorrect-test", Version: "0.1.0"}

func mcpSession(t *testing.T, c *Corrector) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	c.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func seededCorrector(t *testing.T) *Corrector {
	t.Helper()
	c, err := New(Config{Logger: slog.Default()}, WithProvider(&fakeProvider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	c.Ledger().Record(ctx,
		locator.Locator{Strategy: locator.XPath, Value: "//button[@id='old']"},
		locator.Locator{Strategy: locator.ID, Value: "place-order"},
		true, &ledger.SourceLocation{File: "tests/test_checkout.py", Line: 12})
	c.Ledger().Record(ctx,
		locator.Locator{Strategy: locator.CSSSelector, Value: ".gone"},
		locator.Locator{Strategy: locator.CSSSelector, Value: ".still-gone"},
		false, nil)
	return c
}

func TestMCP_Corrections(t *testing.T) {
	session := mcpSession(t, seededCorrector(t))

	text := mcpCallTool(t, session, "autocorrect_corrections", map[string]any{})
	var all []ledger.Record
	if err := json.Unmarshal([]byte(text), &all); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("corrections: got %d, want 2", len(all))
	}

	text = mcpCallTool(t, session, "autocorrect_corrections", map[string]any{"successful_only": true})
	var successful []ledger.Record
	json.Unmarshal([]byte(text), &successful)
	if len(successful) != 1 || successful[0].CorrectedValue != "place-order" {
		t.Errorf("successful corrections: got %+v", successful)
	}
}

func TestMCP_Export(t *testing.T) {
	session := mcpSession(t, seededCorrector(t))
	path := filepath.Join(t.TempDir(), "report.json")

	text := mcpCallTool(t, session, "autocorrect_export", map[string]any{"path": path})
	var resp struct {
		Corrections int `json:"corrections"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Corrections != 2 {
		t.Errorf("corrections: got %d, want 2", resp.Corrections)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file: %v", err)
	}
	report, err := ledger.ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if report.Summary.Total != 2 || report.Summary.Successful != 1 {
		t.Errorf("summary: got %+v", report.Summary)
	}
}

func TestMCP_ExportMissingPath(t *testing.T) {
	session := mcpSession(t, seededCorrector(t))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "autocorrect_export",
		Arguments: map[string]any{"path": ""},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error for a missing path")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(tc.Text, "path is required") {
		t.Errorf("error content: got %v", result.Content)
	}
}
