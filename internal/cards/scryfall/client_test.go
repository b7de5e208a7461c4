package scryfall

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(server *httptest.Server) *Client {
	c := NewClientWithOptions(Options{BaseURL: server.URL, RequestsPerSecond: 1000})
	c.backoff = time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if client.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}
	if client.userAgent == "" {
		t.Error("userAgent is empty")
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("Expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
	}
}

func TestClient_RateLimiting(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClientWithOptions(Options{BaseURL: server.URL, RequestsPerSecond: 10})
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.FetchImage(context.Background(), server.URL); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
	// 3 requests at 10/s take at least 200ms
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("Rate limiting not working: 3 requests took %v", elapsed)
	}
}

func TestClient_DownloadBulk(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/bulk-data", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"type":"oracle_cards","download_uri":"` + server.URL + `/oracle.json"},
			{"type":"default_cards","download_uri":"` + server.URL + `/default.json","size":2}
		]}`))
	})
	mux.HandleFunc("/default.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	var buf bytes.Buffer
	bulk, err := testClient(server).DownloadBulk(context.Background(), DefaultCardsType, &buf)
	if err != nil {
		t.Fatalf("DownloadBulk failed: %v", err)
	}
	if bulk.Type != DefaultCardsType {
		t.Errorf("Expected type %s, got %s", DefaultCardsType, bulk.Type)
	}
	if buf.String() != "[]" {
		t.Errorf("Expected body '[]', got %q", buf.String())
	}

	if _, err := testClient(server).DownloadBulk(context.Background(), "rulings", &buf); err == nil {
		t.Error("Expected error for unknown bulk type")
	}
}

func TestClient_RetriesOnTooManyRequests(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&count, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	list, err := testClient(server).GetBulkData(context.Background())
	if err != nil {
		t.Fatalf("GetBulkData failed: %v", err)
	}
	if len(list.Data) != 0 {
		t.Errorf("Expected empty list, got %d entries", len(list.Data))
	}
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&count, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	list, err := testClient(server).GetBulkData(context.Background())
	if err != nil {
		t.Fatalf("GetBulkData failed: %v", err)
	}
	if len(list.Data) != 0 {
		t.Errorf("Expected empty list, got %d entries", len(list.Data))
	}
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestClient_GivesUpOnPersistentServerError(t *testing.T) {
	var count int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"object":"error","code":"bad_gateway","status":502,"details":"upstream down"}`))
	}))
	defer server.Close()

	_, err := testClient(server).GetBulkData(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Details != "upstream down" {
		t.Errorf("Expected details 'upstream down', got %q", apiErr.Details)
	}
	if got := atomic.LoadInt32(&count); got != maxRetries+1 {
		t.Errorf("Expected %d attempts, got %d", maxRetries+1, got)
	}
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bulk-data":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"object":"error","code":"bad_request","status":400,"details":"nope"}`))
		case "/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()
	client := testClient(server)

	_, err := client.GetBulkData(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Details != "nope" {
		t.Errorf("Expected details 'nope', got %q", apiErr.Details)
	}

	_, err = client.FetchImage(context.Background(), server.URL+"/missing.jpg")
	if !IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}

	_, err = client.FetchImage(context.Background(), server.URL+"/broken.jpg")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusErr.Status)
	}
}

func TestCard_SmallImageURI(t *testing.T) {
	front := &ImageURIs{Small: "front.jpg"}

	tests := []struct {
		name string
		card Card
		want string
	}{
		{"normal", Card{Layout: "normal", ImageURIs: &ImageURIs{Small: "a.jpg"}}, "a.jpg"},
		{"transform front face", Card{Layout: "transform", CardFaces: []CardFace{{ImageURIs: front}, {ImageURIs: &ImageURIs{Small: "back.jpg"}}}}, "front.jpg"},
		{"modal dfc", Card{Layout: "modal_dfc", CardFaces: []CardFace{{ImageURIs: front}}}, "front.jpg"},
		{"split without faces images", Card{Layout: "split", CardFaces: []CardFace{{ImageURIs: front}}}, ""},
		{"none", Card{Layout: "normal"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.card.SmallImageURI()
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("Expected no image, got %q", *got)
			case tt.want != "" && (got == nil || *got != tt.want):
				t.Errorf("Expected %q, got %v", tt.want, got)
			}
		})
	}
}
