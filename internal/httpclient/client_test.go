package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetDefaultClient(t *testing.T) {
	client := GetDefaultClient()
	if client == nil {
		t.Fatal("Expected client to not be nil")
	}

	expected := 10 * time.Minute
	if client.Timeout != expected {
		t.Errorf("Expected timeout to be %v, got %v", expected, client.Timeout)
	}

	if GetDefaultClient() != client {
		t.Errorf("Expected singleton client instance")
	}
}

func TestNewClient(t *testing.T) {
	customTimeout := 5 * time.Second
	client := NewClient(customTimeout)
	if client.Timeout != customTimeout {
		t.Errorf("Expected timeout to be %v, got %v", customTimeout, client.Timeout)
	}
	limited, ok := client.Transport.(*limitTransport)
	if !ok || limited == nil {
		t.Fatalf("Expected limiting transport, got %T", client.Transport)
	}
	transport, ok := limited.base.(*http.Transport)
	if !ok || transport == nil {
		t.Fatalf("Expected transport to be *http.Transport")
	}
	if transport.Proxy == nil {
		t.Errorf("Expected proxy from environment to be configured")
	}
	if transport.MaxIdleConns != MaxIdleConns {
		t.Errorf("Expected MaxIdleConns to be %d, got %d", MaxIdleConns, transport.MaxIdleConns)
	}
	if transport.MaxIdleConnsPerHost != MaxIdleConnsPerHost {
		t.Errorf("Expected MaxIdleConnsPerHost to be %d, got %d", MaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	}
	if transport.IdleConnTimeout != IdleConnTimeout {
		t.Errorf("Expected IdleConnTimeout to be %v, got %v", IdleConnTimeout, transport.IdleConnTimeout)
	}
	if transport.TLSHandshakeTimeout != TLSHandshakeTimeout {
		t.Errorf("Expected TLSHandshakeTimeout to be %v, got %v", TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	}
	if transport.ExpectContinueTimeout != ExpectContinueTimeout {
		t.Errorf("Expected ExpectContinueTimeout to be %v, got %v", ExpectContinueTimeout, transport.ExpectContinueTimeout)
	}
}

func TestLimitedBody(t *testing.T) {
	expectedBody := "hello world"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, expectedBody)
	}))
	defer server.Close()

	resp, err := GetDefaultClient().Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(body) != expectedBody {
		t.Errorf("Expected body %q, got %q", expectedBody, string(body))
	}
}

func TestRequestError(t *testing.T) {
	_, err := GetDefaultClient().Get("http://invalid.url.local")
	if err == nil {
		t.Error("Expected error for invalid URL, got nil")
	}
}

func TestTooLargeDeclared(t *testing.T) {
	oversized := make([]byte, MaxResponseBytes+1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(oversized)))
		w.WriteHeader(http.StatusOK)
		w.Write(oversized)
	}))
	defer server.Close()

	_, err := GetDefaultClient().Get(server.URL)
	if err == nil || !IsTooLarge(err) || !strings.Contains(err.Error(), "response body too large") {
		t.Fatalf("expected response body too large error, got: %v", err)
	}
}

func TestTooLargeStreamed(t *testing.T) {
	var chunks []string
	for i := 0; i < 10; i++ {
		chunks = append(chunks, "0123456789")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprint(w, c)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := &http.Client{Transport: &limitTransport{base: http.DefaultTransport, limit: 25}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	_, err = io.ReadAll(resp.Body)
	if !IsTooLarge(err) {
		t.Fatalf("expected streamed body to hit the limit, got: %v", err)
	}
}

func TestSetDefaultClientForTesting(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	restore := SetDefaultClientForTesting(custom)
	defer restore()

	if GetDefaultClient() != custom {
		t.Fatalf("Expected overridden default client")
	}
}
