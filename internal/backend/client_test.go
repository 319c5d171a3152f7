package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

// rpcServer answers every JSON-RPC call on path with result and records the
// last request it saw.
type rpcServer struct {
	path   string
	result string
	status int

	mu         sync.Mutex
	lastParams json.RawMessage
	lastCookie string
}

func (s *rpcServer) last() (json.RawMessage, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParams, s.lastCookie
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}
	var req struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      int64           `json:"id"`
	}
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil || req.JSONRPC != "2.0" || req.Method != "call" {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.lastParams = req.Params
	if c, err := r.Cookie("session_id"); err == nil {
		s.lastCookie = c.Value
	}
	s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,`+s.result+`}`)
}

func newTestClient(t *testing.T, srv *rpcServer) *Client {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return New(Options{BaseURL: ts.URL, Timeout: time.Second})
}

func TestSearchSendsQueryAndDecodesArray(t *testing.T) {
	srv := &rpcServer{
		path:   "/activities/search",
		result: `"result":[{"id":1,"name":"Tournoi","state":"confirmed","location":false,"date_start":null}]`,
	}
	c := newTestClient(t, srv).WithSession("abc")

	got, err := c.Search(context.Background(), model.SearchQuery{Term: "tour", GroupID: "3", State: "ongoing", Limit: 12})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Tournoi" {
		t.Fatalf("unexpected results: %+v", got)
	}

	rawParams, cookie := srv.last()
	var params searchParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		t.Fatalf("params: %v", err)
	}
	want := searchParams{Search: "tour", Filters: searchFilters{GroupID: "3", State: "ongoing"}, Limit: 12}
	if params != want {
		t.Errorf("params = %+v, want %+v", params, want)
	}
	if cookie != "abc" {
		t.Errorf("session cookie = %q, want abc", cookie)
	}
}

func TestSearchDecodesEnvelope(t *testing.T) {
	srv := &rpcServer{
		path:   "/activities/search",
		result: `"result":{"success":true,"results":[],"total":0}`,
	}
	got, err := newTestClient(t, srv).Search(context.Background(), model.SearchQuery{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil results, got %#v", got)
	}
}

func TestSearchReportsServerFailure(t *testing.T) {
	srv := &rpcServer{
		path:   "/activities/search",
		result: `"result":{"success":false,"error":"Erreur lors de la recherche","results":[]}`,
	}
	_, err := newTestClient(t, srv).Search(context.Background(), model.SearchQuery{})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("want *RPCError, got %v", err)
	}
	if rpcErr.Message != "Erreur lors de la recherche" {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestCallMapsEnvelopeError(t *testing.T) {
	srv := &rpcServer{
		path:   "/activities/stats",
		result: `"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessError","message":"Accès refusé"}}`,
	}
	_, err := newTestClient(t, srv).Stats(context.Background())
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("want *RPCError, got %v", err)
	}
	if rpcErr.Message != "Accès refusé" || rpcErr.Code != 200 {
		t.Errorf("unexpected error: %+v", rpcErr)
	}
}

func TestCallMapsHTTPStatus(t *testing.T) {
	notFound := &rpcServer{path: "/elsewhere"}
	_, err := newTestClient(t, notFound).CheckEligibility(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}

	broken := &rpcServer{path: "/activity/9/check_eligibility", status: http.StatusBadGateway}
	_, err = newTestClient(t, broken).CheckEligibility(context.Background(), 9)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("want ErrUnavailable, got %v", err)
	}
}

func TestStatsFlatAndNested(t *testing.T) {
	flat := &rpcServer{path: "/activities/stats", result: `"result":{"total_activities":8,"available_spots":20}`}
	got, err := newTestClient(t, flat).Stats(context.Background())
	if err != nil || got.TotalActivities != 8 || got.AvailableSpots != 20 {
		t.Errorf("flat stats = %+v, %v", got, err)
	}

	nested := &rpcServer{path: "/activities/stats", result: `"result":{"success":true,"stats":{"total_activities":5}}`}
	got, err = newTestClient(t, nested).Stats(context.Background())
	if err != nil || got.TotalActivities != 5 {
		t.Errorf("nested stats = %+v, %v", got, err)
	}
}

func TestCheckEligibility(t *testing.T) {
	srv := &rpcServer{
		path:   "/activity/4/check_eligibility",
		result: `"result":{"success":true,"message":"ok","activity_info":{"name":"Gala","cotisation_amount":15,"currency_symbol":"€","available_spots":0}}`,
	}
	got, err := newTestClient(t, srv).CheckEligibility(context.Background(), 4)
	if err != nil {
		t.Fatalf("CheckEligibility: %v", err)
	}
	if !got.Success || got.ActivityInfo == nil || got.ActivityInfo.Name != "Gala" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestCotisationStatusShapes(t *testing.T) {
	current := &rpcServer{
		path:   "/my/cotisation/42/status",
		result: `"result":{"success":true,"cotisation":{"state":"overdue","amount_paid":0,"remaining_amount":50,"currency_symbol":"€"},"proofs":[{"id":3,"state":"rejected"}]}`,
	}
	got, err := newTestClient(t, current).CotisationStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("CotisationStatus: %v", err)
	}
	if got.Cotisation.State != model.CotisationOverdue {
		t.Errorf("state = %q", got.Cotisation.State)
	}
	if p, ok := got.LatestProof(); !ok || p.State != model.ProofRejected {
		t.Errorf("latest proof = %+v, %v", p, ok)
	}

	legacy := &rpcServer{
		path:   "/my/cotisation/42/status",
		result: `"result":{"success":true,"data":{"state":"partial","amount_paid":10,"remaining_amount":40}}`,
	}
	got, err = newTestClient(t, legacy).CotisationStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("CotisationStatus: %v", err)
	}
	if got.Cotisation.State != model.CotisationPartial || got.Cotisation.AmountPaid != 10 {
		t.Errorf("legacy status = %+v", got.Cotisation)
	}
}

func TestNewClientRetriesProbe(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"server_version":"17.0"}}`)
	}))
	defer ts.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), Options{
		BaseURL:       ts.URL,
		ProbeAttempts: 5,
		ProbeDelay:    time.Millisecond,
	}, log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("probe hits = %d, want 3", got)
	}
}

func TestNewClientGivesUp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), Options{
		BaseURL:       ts.URL,
		ProbeAttempts: 2,
		ProbeDelay:    time.Millisecond,
	}, log)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("want ErrUnavailable, got %v", err)
	}
}
