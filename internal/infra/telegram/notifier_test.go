package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (r *countingRecorder) RecordNotification(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ok++
	} else {
		r.fail++
	}
}

func TestNotifier_Send(t *testing.T) {
	var mu sync.Mutex
	var gotChat, gotText, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	rec := &countingRecorder{}
	n := NewNotifier(Config{APIURL: server.URL, Token: "123:abc", ChatID: "42"}, rec)

	n.Notify(context.Background(), "✅ BOUGHT 5 lots SBER")

	mu.Lock()
	defer mu.Unlock()

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotChat != "42" || gotText != "✅ BOUGHT 5 lots SBER" {
		t.Errorf("Unexpected form: chat=%q text=%q", gotChat, gotText)
	}
	if rec.ok != 1 || rec.fail != 0 {
		t.Errorf("Expected 1 success, got ok=%d fail=%d", rec.ok, rec.fail)
	}
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
		}))
		defer server.Close()

		rec := &countingRecorder{}
		n := NewNotifier(Config{APIURL: server.URL, Token: "t", ChatID: "1"}, rec)
		n.Notify(context.Background(), "msg")

		if rec.fail != 1 {
			t.Errorf("Expected 1 failure, got %d", rec.fail)
		}
	})

	t.Run("timeout is bounded", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		rec := &countingRecorder{}
		n := NewNotifier(Config{APIURL: server.URL, Token: "t", ChatID: "1", Timeout: 50 * time.Millisecond}, rec)

		start := time.Now()
		n.Notify(context.Background(), "msg")
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("Notify took %s, expected it to honour the timeout", elapsed)
		}
		if rec.fail != 1 {
			t.Errorf("Expected 1 failure, got %d", rec.fail)
		}
	})

	t.Run("cancelled caller context still delivers", func(t *testing.T) {
		var delivered atomic.Bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			delivered.Store(true)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		n := NewNotifier(Config{APIURL: server.URL, Token: "t", ChatID: "1"}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		n.Notify(ctx, "msg")

		if !delivered.Load() {
			t.Error("Expected delivery despite cancelled request context")
		}
	})
}

func TestNotifier_Disabled(t *testing.T) {
	rec := &countingRecorder{}
	n := NewNotifier(Config{}, rec)

	if n.Enabled() {
		t.Fatal("Notifier without credentials should be disabled")
	}
	n.Notify(context.Background(), "msg")
	if rec.ok != 0 || rec.fail != 0 {
		t.Error("Disabled notifier should not record deliveries")
	}
}
