// Package mcptools exposes the published dashboard view as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
)

const maxEvents = 10

var ErrNoView = errors.New("dashboard view not published yet")

// ViewSource returns the latest published dashboard view.
type ViewSource interface {
	GetView(ctx context.Context) (*domain.DashboardView, error)
}

type PriceInput struct {
	Symbol string `json:"symbol" jsonschema:"asset symbol such as ETH or ETH/USD"`
}

type EventsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of events, newest first (default 10)"`
}

type tools struct {
	src ViewSource
	log *logger.Entry
}

// NewServer builds an MCP server with read-only dashboard tools.
func NewServer(src ViewSource, version string) *mcp.Server {
	t := &tools{src: src, log: logger.L().WithComponent("mcp")}
	server := mcp.NewServer(&mcp.Implementation{Name: "price-oracle-dashboard", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "Full merged dashboard: prices with source, mint threshold, market data, rankings and recent threshold events.",
	}, t.getDashboard)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_price",
		Description: "Displayed price for one asset with its source and staleness.",
	}, t.getPrice)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_threshold_events",
		Description: "Recent ThresholdCrossed events observed on the oracle contract.",
	}, t.getThresholdEvents)

	return server
}

func (t *tools) view(ctx context.Context) (*domain.DashboardView, error) {
	view, err := t.src.GetView(ctx)
	if err != nil {
		t.log.WithError(err).Warn("view lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrNoView, err)
	}
	if view == nil {
		return nil, ErrNoView
	}
	return view, nil
}

func (t *tools) getDashboard(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	view, err := t.view(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(view)
}

func (t *tools) getPrice(ctx context.Context, _ *mcp.CallToolRequest, in PriceInput) (*mcp.CallToolResult, any, error) {
	symbol := normalizeSymbol(in.Symbol)
	if symbol == "" {
		return nil, nil, errors.New("symbol is required")
	}
	view, err := t.view(ctx)
	if err != nil {
		return nil, nil, err
	}
	price, ok := view.Price(symbol)
	if !ok {
		return nil, nil, fmt.Errorf("unknown symbol %q", symbol)
	}
	return jsonResult(price)
}

func (t *tools) getThresholdEvents(ctx context.Context, _ *mcp.CallToolRequest, in EventsInput) (*mcp.CallToolResult, any, error) {
	view, err := t.view(ctx)
	if err != nil {
		return nil, nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > maxEvents {
		limit = maxEvents
	}
	events := view.Events
	if len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []domain.ThresholdEvent{}
	}
	return jsonResult(map[string]any{"events": events})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

// normalizeSymbol accepts "eth", "ETH/USD" and "ETH-USD".
func normalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, "/-"); i >= 0 {
		s = s[:i]
	}
	return s
}
