package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(maxRetries int) *Client {
	return New(Options{
		Timeout:        2 * time.Second,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func TestGet_SuccessFirstTry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := testClient(3).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body %q", body)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected 1 call, got %d", n)
	}
}

func TestGet_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient(3).Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body %q", body)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected 3 calls (2 failures + 1 success), got %d", n)
	}
}

func TestGet_NonRetryableStatusFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(3).Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected StatusError with 401, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 call for non-retryable status, got %d", n)
	}
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(2).Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected 3 calls (maxRetries+1), got %d", n)
	}
}

func TestGet_ContextCancellationStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(3).Get(ctx, srv.URL, nil)
	if err == nil {
		t.Fatal("Expected error with cancelled context")
	}
}

func TestGet_TimeoutIsRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{
		Timeout:        50 * time.Millisecond,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	})
	body, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Expected recovery after timed-out attempt, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body %q", body)
	}
	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("Expected at least 2 attempts, got %d", n)
	}
}

func TestPost_SendsPayloadEveryAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 16)
		n, _ := r.Body.Read(buf)
		if string(buf[:n]) != `{"q":"x"}` {
			t.Errorf("Attempt %d got payload %q", atomic.LoadInt32(&calls), buf[:n])
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := testClient(2).Post(context.Background(), srv.URL, nil, []byte(`{"q":"x"}`))
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected 2 attempts, got %d", n)
	}
}
