package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/action"
	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/reconcile"
)

func testView() *domain.DashboardView {
	return &domain.DashboardView{
		Prices: []domain.ViewPrice{
			{Symbol: "ETH", Pair: "ETH/USD", Price: "2000.00", Source: domain.SourceOracle, HighThreshold: "2500.00", LowThreshold: "1800.00"},
			{Symbol: "SOL", Pair: "SOL/AUD", Price: "250.00", Source: domain.SourceMarketAPI},
		},
		Threshold:          domain.ThresholdState{Value: "1500.00", Active: true},
		MintSymbol:         "ETH",
		AboveMintThreshold: true,
		MintAllowed:        true,
		Market:             []domain.MarketEntry{{Symbol: "SOL", LastPrice: "250.00", Change: -1.2, Listed: true}},
		MarketCurrency:     "aud",
		Events:             []domain.ThresholdEvent{{Symbol: "ETH/USD", Price: "2600.00", CrossedHigh: true, TxHash: "0x1"}},
	}
}

type stubDashboard struct {
	mu   sync.Mutex
	view *domain.DashboardView
	subs []chan *domain.DashboardView
}

func (s *stubDashboard) View() *domain.DashboardView { return s.view }

func (s *stubDashboard) Price(symbol string) (domain.ViewPrice, bool) {
	return s.view.Price(symbol)
}

func (s *stubDashboard) Subscribe() (<-chan *domain.DashboardView, func()) {
	ch := make(chan *domain.DashboardView, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch, func() {}
}

func (s *stubDashboard) push(v *domain.DashboardView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		ch <- v
	}
}

func (s *stubDashboard) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type stubActions struct {
	canSign bool
	intent  *domain.TransactionIntent
	err     error
	calls   []string
}

func (s *stubActions) CanSign() bool { return s.canSign }

func (s *stubActions) Intents(ctx context.Context, limit int) ([]domain.TransactionIntent, error) {
	s.calls = append(s.calls, "intents")
	if s.intent == nil {
		return nil, s.err
	}
	return []domain.TransactionIntent{*s.intent}, s.err
}

func (s *stubActions) Mint(ctx context.Context, to string) (*domain.TransactionIntent, error) {
	s.calls = append(s.calls, "mint:"+to)
	return s.intent, s.err
}

func (s *stubActions) SetThresholds(ctx context.Context, pair, high, low string) (*domain.TransactionIntent, error) {
	s.calls = append(s.calls, "thresholds:"+pair+":"+high+":"+low)
	return s.intent, s.err
}

func (s *stubActions) RegisterFeed(ctx context.Context, pair, feed string) (*domain.TransactionIntent, error) {
	s.calls = append(s.calls, "feed:"+pair)
	return s.intent, s.err
}

func (s *stubActions) BatchRegisterFeeds(ctx context.Context, pairs, feeds []string) (*domain.TransactionIntent, error) {
	s.calls = append(s.calls, "batch:"+strings.Join(pairs, ","))
	return s.intent, s.err
}

func (s *stubActions) UpdatePriceData(ctx context.Context, pair string) (*domain.TransactionIntent, error) {
	s.calls = append(s.calls, "update:"+pair)
	return s.intent, s.err
}

func newTestRouter(dash Dashboard, actions Actions, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(trace.NewNoopTracerProvider().Tracer("test"), dash, actions, metrics.New(), apiKey)
	h.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, &stubActions{canSign: true}, "")

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "healthy" || body["can_sign"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHealthDegradedWhenBothSourcesDown(t *testing.T) {
	view := testView()
	view.OracleDegraded = true
	view.MarketDegraded = true
	r := newTestRouter(&stubDashboard{view: view}, nil, "")

	w := do(r, http.MethodGet, "/health", "")
	if !strings.Contains(w.Body.String(), `"status":"degraded"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestGetPrice(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, nil, "")

	for _, path := range []string{"/api/prices/eth", "/api/prices/ETH-USD"} {
		w := do(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		var p domain.ViewPrice
		if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if p.Price != "2000.00" || p.Source != domain.SourceOracle {
			t.Fatalf("unexpected price: %+v", p)
		}
	}

	if w := do(r, http.MethodGet, "/api/prices/DOGE", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestReadEndpoints(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, nil, "")

	cases := []struct {
		path string
		want string
	}{
		{"/api/dashboard", `"mint_allowed":true`},
		{"/api/prices", `"source":"market_api"`},
		{"/api/market", `"positive":false`},
		{"/api/thresholds", `"high":"2500.00"`},
		{"/api/events", `"crossed_high":true`},
	}
	for _, tc := range cases {
		w := do(r, http.MethodGet, tc.path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, w.Code)
		}
		if !strings.Contains(w.Body.String(), tc.want) {
			t.Fatalf("%s: expected %s in %s", tc.path, tc.want, w.Body.String())
		}
	}
}

func TestThresholdsOnlyListsPairsWithThresholds(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, nil, "")

	w := do(r, http.MethodGet, "/api/thresholds", "")
	var body struct {
		Pairs []pairThresholdResponse `json:"pairs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Pairs) != 1 || body.Pairs[0].Symbol != "ETH" {
		t.Fatalf("unexpected pairs: %+v", body.Pairs)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, nil, "")
	w := do(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("unexpected metrics response: %d", w.Code)
	}
}

func TestActionsRequireAPIKey(t *testing.T) {
	actions := &stubActions{intent: &domain.TransactionIntent{ID: "1", Status: domain.IntentConfirmed}}
	r := newTestRouter(&stubDashboard{view: testView()}, actions, "secret")

	if w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`, "X-API-Key", "wrong"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/actions", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on listing, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`, "X-API-Key", "secret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(actions.calls) != 1 || actions.calls[0] != "mint:0x1" {
		t.Fatalf("unexpected calls: %v", actions.calls)
	}
}

func TestActionErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"user rejected", &chain.TxError{Kind: chain.KindUserRejected, Reason: "User denied"}, http.StatusConflict},
		{"reverted", chain.Reverted("Price below threshold"), http.StatusUnprocessableEntity},
		{"rpc", &chain.TxError{Kind: chain.KindRPC, Reason: "dial tcp"}, http.StatusBadGateway},
		{"invalid", chain.InvalidInput("bad address"), http.StatusBadRequest},
		{"no signer", &chain.TxError{Kind: chain.KindNoSigner, Reason: "no signer"}, http.StatusServiceUnavailable},
		{"pending", action.ErrPending, http.StatusAccepted},
		{"untyped", errors.New("boom"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := &stubActions{intent: &domain.TransactionIntent{ID: "1"}, err: tc.err}
			r := newTestRouter(&stubDashboard{view: testView()}, actions, "")
			w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRejectedMintReportsKind(t *testing.T) {
	actions := &stubActions{
		intent: &domain.TransactionIntent{ID: "1", Status: domain.IntentFailed},
		err:    &chain.TxError{Kind: chain.KindUserRejected, Reason: "User denied transaction signature"},
	}
	r := newTestRouter(&stubDashboard{view: testView()}, actions, "")

	w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`)
	var body struct {
		Kind   string                    `json:"kind"`
		Error  string                    `json:"error"`
		Intent *domain.TransactionIntent `json:"intent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Kind != "user_rejected" || body.Intent == nil || body.Intent.Status != domain.IntentFailed {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func mintView(eth string, active bool) *domain.DashboardView {
	return reconcile.Reconcile(&domain.OracleSnapshot{
		Pairs:     []domain.Pair{"ETH/USD"},
		Prices:    map[string]domain.PriceSnapshot{"ETH": {Symbol: "ETH", Pair: "ETH/USD", Price: eth, Source: domain.SourceOracle}},
		Threshold: domain.ThresholdState{Value: "1500.00", Active: active},
	}, nil, reconcile.Options{})
}

func TestMintGatedByThreshold(t *testing.T) {
	cases := []struct {
		name   string
		view   *domain.DashboardView
		want   int
		reason string
	}{
		{"below threshold", mintView("1499.99", true), http.StatusConflict, "ETH price 1499.99 is below threshold 1500.00"},
		{"at threshold", mintView("1500.00", true), http.StatusOK, ""},
		{"inactive", mintView("2000.00", false), http.StatusConflict, "mint threshold is not active"},
		{"no oracle price", reconcile.Reconcile(&domain.OracleSnapshot{
			Pairs:     []domain.Pair{"ETH/USD"},
			Prices:    map[string]domain.PriceSnapshot{"ETH": {Symbol: "ETH", Pair: "ETH/USD", Price: domain.ZeroPrice, Source: domain.SourceUnavailable}},
			Threshold: domain.ThresholdState{Value: "1500.00", Active: true},
		}, nil, reconcile.Options{}), http.StatusConflict, "no oracle price for ETH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := &stubActions{intent: &domain.TransactionIntent{ID: "1", Status: domain.IntentConfirmed}}
			r := newTestRouter(&stubDashboard{view: tc.view}, actions, "")

			w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if tc.want == http.StatusOK {
				if len(actions.calls) != 1 {
					t.Fatalf("expected one mint call, got %v", actions.calls)
				}
				return
			}
			if len(actions.calls) != 0 {
				t.Fatalf("blocked mint must not submit, got %v", actions.calls)
			}
			var body struct {
				Kind  string `json:"kind"`
				Error string `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Kind != "threshold_not_met" || body.Error != tc.reason {
				t.Fatalf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestActionRoutesDispatch(t *testing.T) {
	actions := &stubActions{intent: &domain.TransactionIntent{ID: "1"}}
	r := newTestRouter(&stubDashboard{view: testView()}, actions, "")

	do(r, http.MethodPost, "/api/actions/thresholds", `{"pair":"ETH/USD","high":"3000","low":"2000"}`)
	do(r, http.MethodPost, "/api/actions/feeds", `{"pair":"ETH/USD","feed":"0xabc"}`)
	do(r, http.MethodPost, "/api/actions/feeds", `{"pairs":["ETH/USD","BTC/USD"],"feeds":["0x1","0x2"]}`)
	do(r, http.MethodPost, "/api/actions/update-price", `{"pair":"LINK/USD"}`)
	do(r, http.MethodGet, "/api/actions?limit=5", "")

	want := []string{"thresholds:ETH/USD:3000:2000", "feed:ETH/USD", "batch:ETH/USD,BTC/USD", "update:LINK/USD", "intents"}
	if strings.Join(actions.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected calls: %v", actions.calls)
	}
}

func TestActionBadRequests(t *testing.T) {
	actions := &stubActions{}
	r := newTestRouter(&stubDashboard{view: testView()}, actions, "")

	if w := do(r, http.MethodPost, "/api/actions/thresholds", `{"pair":"ETH/USD"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/actions/feeds", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty feeds request, got %d", w.Code)
	}
	if len(actions.calls) != 0 {
		t.Fatalf("no action should run, got %v", actions.calls)
	}
}

func TestActionsUnavailableWithoutSubmitter(t *testing.T) {
	r := newTestRouter(&stubDashboard{view: testView()}, nil, "")
	if w := do(r, http.MethodPost, "/api/actions/mint", `{"to":"0x1"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestStreamSendsCurrentAndNewViews(t *testing.T) {
	dash := &stubDashboard{view: testView()}
	srv := httptest.NewServer(newTestRouter(dash, nil, ""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first domain.DashboardView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first view: %v", err)
	}
	if !first.MintAllowed {
		t.Fatalf("unexpected first view: %+v", first)
	}

	deadline := time.Now().Add(time.Second)
	for dash.subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	next := testView()
	next.MintAllowed = false
	dash.push(next)

	var second domain.DashboardView
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second view: %v", err)
	}
	if second.MintAllowed {
		t.Fatal("expected the pushed view")
	}
}
