package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"price-oracle-dashboard/internal/domain"
)

type stubSource struct {
	view *domain.DashboardView
	err  error
}

func (s stubSource) GetView(context.Context) (*domain.DashboardView, error) {
	return s.view, s.err
}

func connect(t *testing.T, src ViewSource) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(src, "test")
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func sampleView() *domain.DashboardView {
	events := make([]domain.ThresholdEvent, 12)
	for i := range events {
		events[i] = domain.ThresholdEvent{Symbol: "ETH/USD", Price: "2600.00", CrossedHigh: true, TxHash: "0xabc", LogIndex: uint(i)}
	}
	return &domain.DashboardView{
		Prices: []domain.ViewPrice{
			{Symbol: "ETH", Pair: "ETH/USD", Price: "2000.00", Source: domain.SourceOracle},
			{Symbol: "BTC", Pair: "BTC/USD", Price: "0.00", Source: domain.SourceUnavailable},
		},
		Threshold:  domain.ThresholdState{Value: "1500.00", Active: true},
		MintSymbol: "ETH",
		Events:     events,
	}
}

func TestListTools(t *testing.T) {
	cs := connect(t, stubSource{view: sampleView()})
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"get_dashboard", "get_price", "get_threshold_events"}, names)
}

func TestGetDashboard(t *testing.T) {
	cs := connect(t, stubSource{view: sampleView()})
	res := call(t, cs, "get_dashboard", map[string]any{})
	require.False(t, res.IsError)

	var view domain.DashboardView
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &view))
	require.Len(t, view.Prices, 2)
	require.Equal(t, "1500.00", view.Threshold.Value)
}

func TestGetPriceAcceptsPairNotation(t *testing.T) {
	cs := connect(t, stubSource{view: sampleView()})
	res := call(t, cs, "get_price", map[string]any{"symbol": "eth-usd"})
	require.False(t, res.IsError)

	var price domain.ViewPrice
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &price))
	require.Equal(t, "2000.00", price.Price)
	require.Equal(t, domain.SourceOracle, price.Source)
}

func TestGetPriceUnknownSymbol(t *testing.T) {
	cs := connect(t, stubSource{view: sampleView()})
	res := call(t, cs, "get_price", map[string]any{"symbol": "DOGE"})
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "unknown symbol")
}

func TestGetThresholdEventsCapsLimit(t *testing.T) {
	cs := connect(t, stubSource{view: sampleView()})

	res := call(t, cs, "get_threshold_events", map[string]any{"limit": 3})
	var out struct {
		Events []domain.ThresholdEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	require.Len(t, out.Events, 3)

	res = call(t, cs, "get_threshold_events", map[string]any{})
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	require.Len(t, out.Events, maxEvents)
}

func TestToolsReportMissingView(t *testing.T) {
	cs := connect(t, stubSource{err: errors.New("redis: nil")})
	res := call(t, cs, "get_dashboard", map[string]any{})
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "not published")
}

func TestNormalizeSymbol(t *testing.T) {
	require.Equal(t, "ETH", normalizeSymbol(" eth "))
	require.Equal(t, "BTC", normalizeSymbol("BTC/USD"))
	require.Equal(t, "", normalizeSymbol(""))
}
