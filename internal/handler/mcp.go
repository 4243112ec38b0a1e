// MCP transport handler using the official MCP Go SDK.
// Exposes the bulk-edit operations as tools for the planner agent.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storepilot/internal/model"
)

// === MCP Tool Input/Output Types ===
// Plans arrive as a free-form object and are decoded into model.Plan, so the
// planner can send parameters as strings or numbers.

// PlanInput is the input schema for preview_bulk_edit and apply_bulk_edit.
type PlanInput struct {
	StoreID string         `json:"store_id" jsonschema:"Nuvemshop store ID"`
	Plan    map[string]any `json:"plan" jsonschema:"bulk-edit plan: find_product, find_variant and changes, or category_rules, modifications, variant_rules"`
	Wait    bool           `json:"wait,omitempty" jsonschema:"run the plan inline and return its result"`
}

// RevertInput is the input schema for revert_bulk_edit.
type RevertInput struct {
	StoreID   string `json:"store_id" jsonschema:"Nuvemshop store ID"`
	HistoryID string `json:"history_id" jsonschema:"history entry to undo"`
}

// HistoryInput is the input schema for list_bulk_edits.
type HistoryInput struct {
	StoreID string `json:"store_id" jsonschema:"Nuvemshop store ID"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default 20)"`
}

// ApplyOutput is returned by apply_bulk_edit. Result is only set for wait=true.
type ApplyOutput struct {
	Status  string                 `json:"status"`
	Summary string                 `json:"summary"`
	Result  *model.ExecutionResult `json:"result,omitempty"`
}

// HistoryOutput is returned by list_bulk_edits.
type HistoryOutput struct {
	History []HistoryEntry `json:"history"`
}

// HistoryEntry is a history log as shown to the planner.
type HistoryEntry struct {
	ID            string `json:"id"`
	Summary       string `json:"summary"`
	AffectedCount int    `json:"affected_count"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// NewMCPServer creates an MCP server with the bulk-edit tools registered.
// The server exposes the same operations as the REST API.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storepilot",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "StorePilot bulk editor for Nuvemshop catalogs. " +
				"Preview a plan before applying it; every applied plan can be reverted from history.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_bulk_edit",
		Description: "Resolve a plan against the catalog mirror and report how many products it would touch, with a few sample names.",
	}, h.mcpPreview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_bulk_edit",
		Description: "Apply a plan to the store. Runs in the background unless wait is true.",
	}, h.mcpApply)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "revert_bulk_edit",
		Description: "Undo a successful plan run by applying its inverse.",
	}, h.mcpRevert)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_bulk_edits",
		Description: "List the store's plan runs, newest first.",
	}, h.mcpHistory)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpPreview(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PlanInput,
) (*mcp.CallToolResult, *model.Preview, error) {
	plan, err := decodePlan(input.Plan)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	preview, err := h.svc.Preview(ctx, input.StoreID, plan)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, preview, nil
}

func (h *Handler) mcpApply(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PlanInput,
) (*mcp.CallToolResult, *ApplyOutput, error) {
	plan, err := decodePlan(input.Plan)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	if input.Wait {
		res, err := h.svc.Execute(ctx, input.StoreID, plan)
		if err != nil {
			return nil, nil, h.mcpError(err)
		}
		return nil, &ApplyOutput{Status: string(res.Status), Summary: res.Summary, Result: res}, nil
	}

	if err := h.svc.Apply(ctx, input.StoreID, plan); err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &ApplyOutput{Status: "accepted", Summary: plan.Summary()}, nil
}

func (h *Handler) mcpRevert(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RevertInput,
) (*mcp.CallToolResult, *model.ReversalResult, error) {
	if input.HistoryID == "" {
		return nil, nil, fmt.Errorf("history_id is required")
	}

	res, err := h.svc.Revert(ctx, input.StoreID, input.HistoryID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, res, nil
}

func (h *Handler) mcpHistory(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, *HistoryOutput, error) {
	logs, err := h.svc.History(ctx, input.StoreID, input.Limit)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	out := &HistoryOutput{History: make([]HistoryEntry, 0, len(logs))}
	for _, l := range logs {
		out.History = append(out.History, HistoryEntry{
			ID:            l.ID,
			Summary:       l.Summary,
			AffectedCount: l.AffectedCount,
			Status:        string(l.Status),
			CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// decodePlan converts the tool's plan object into a model.Plan.
func decodePlan(raw map[string]any) (*model.Plan, error) {
	if len(raw) == 0 {
		return nil, model.NewValidationError("plan", "required")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, model.NewValidationError("plan", "invalid JSON")
	}
	var plan model.Plan
	if err := json.Unmarshal(b, &plan); err != nil {
		return nil, model.NewValidationError("plan", err.Error())
	}
	return &plan, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
