package autocorrect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP exposes the correction ledger and patcher as MCP tools, so an
// agent session can inspect and apply corrections after a test run.
func (c *Corrector) RegisterMCP(srv *mcp.Server) {
	c.registerCorrectionsTool(srv)
	c.registerExportTool(srv)
	c.registerApplyTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool bridges a typed endpoint onto the MCP server. Endpoint errors
// become tool errors, results are JSON text content.
func registerTool(srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := endpoint(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- corrections ---

type correctionsReq struct {
	SuccessfulOnly bool `json:"successful_only"`
}

func (c *Corrector) registerCorrectionsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "autocorrect_corrections",
		Description: "List locator corrections recorded in the current run.",
		InputSchema: inputSchema(map[string]any{
			"successful_only": map[string]any{"type": "boolean", "description": "Only corrections that resolved on the live page"},
		}, nil),
	}

	registerTool(srv, tool, func(_ context.Context, args json.RawMessage) (any, error) {
		var r correctionsReq
		if len(args) > 0 {
			if err := json.Unmarshal(args, &r); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		if r.SuccessfulOnly {
			return c.ledger.Successful(), nil
		}
		return c.ledger.List(), nil
	})
}

// --- export ---

type exportReq struct {
	Path string `json:"path"`
}

func (c *Corrector) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "autocorrect_export",
		Description: "Export the correction report as JSON to a file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Destination file path"},
		}, []string{"path"}),
	}

	registerTool(srv, tool, func(_ context.Context, args json.RawMessage) (any, error) {
		var r exportReq
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		if r.Path == "" {
			return nil, errors.New("path is required")
		}
		if err := c.ledger.Export(r.Path); err != nil {
			return nil, err
		}
		return map[string]any{"path": r.Path, "corrections": len(c.ledger.List())}, nil
	})
}

// --- apply ---

func (c *Corrector) registerApplyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "autocorrect_apply",
		Description: "Apply all successful corrections to their recorded test files.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	registerTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return c.ApplyAll(ctx), nil
	})
}
