package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-catalog-sync/config"
)

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func newMockedFetcher(t *testing.T) (*Fetcher, *httpmock.MockTransport, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	transport := httpmock.NewMockTransport()
	f.WithTransport(transport)
	return f, transport, cfg
}

func TestFetcherListPage(t *testing.T) {
	f, transport, cfg := newMockedFetcher(t)
	transport.RegisterResponder("GET", cfg.ListPageURL(2),
		htmlResponder("<html><body>page two</body></html>"))

	body, err := f.ListPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("empty body")
	}
}

func TestFetcherDetailPageNotFound(t *testing.T) {
	f, transport, cfg := newMockedFetcher(t)
	transport.RegisterResponder("GET", cfg.DetailPageURL("RJ999999"),
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	_, err := f.DetailPage(context.Background(), "RJ999999")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFetcherDetailPageCached(t *testing.T) {
	f, transport, cfg := newMockedFetcher(t)
	transport.RegisterResponder("GET", cfg.DetailPageURL("RJ123456"),
		htmlResponder("<html><body>detail</body></html>"))

	if _, err := f.DetailPage(context.Background(), "RJ123456"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := f.DetailPage(context.Background(), "RJ123456"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	calls := transport.GetCallCountInfo()
	if got := calls["GET "+cfg.DetailPageURL("RJ123456")]; got != 1 {
		t.Fatalf("expected 1 upstream request, got %d", got)
	}
}

func TestFetcherRotatesUserAgents(t *testing.T) {
	f, transport, cfg := newMockedFetcher(t)

	var agents []string
	transport.RegisterResponder("GET", cfg.ListPageURL(1),
		func(req *http.Request) (*http.Response, error) {
			agents = append(agents, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(200, "<html>ok</html>"), nil
		})

	for i := 0; i < 3; i++ {
		if _, err := f.ListPage(context.Background(), 1); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if len(agents) != 3 {
		t.Fatalf("got %d requests", len(agents))
	}
	if agents[0] == agents[1] && agents[1] == agents[2] {
		t.Fatalf("user agent never rotated: %q", agents[0])
	}
	for _, agent := range agents {
		if agent == "" {
			t.Fatal("request without a user agent")
		}
	}
}

func TestFetcherCanceledContext(t *testing.T) {
	f, _, _ := newMockedFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.ListPage(ctx, 1); err == nil {
		t.Fatal("canceled context must fail fast")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusBadGateway, expected: "server"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrTimeout{Err: errors.New("x")}) {
		t.Fatal("timeout is transient")
	}
	if !IsTransient(ErrServer{Err: errors.New("x")}) {
		t.Fatal("5xx is transient")
	}
	if IsTransient(ErrNotFound{Err: errors.New("x")}) {
		t.Fatal("404 is terminal for the record, not transient")
	}
}
