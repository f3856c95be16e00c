package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"emovox/internal/chat"
	"emovox/internal/metrics"
	"emovox/internal/vox"
)

type fakeVox struct {
	busy atomic.Bool
	said chan string
}

func (f *fakeVox) Busy() bool { return f.busy.Load() }

func (f *fakeVox) HandleText(ctx context.Context, text string) (*vox.Result, error) {
	f.said <- text
	return &vox.Result{UserText: text}, nil
}

func setup(t *testing.T) (http.Handler, *fakeVox, *chat.History, *metrics.Metrics) {
	t.Helper()
	fv := &fakeVox{said: make(chan string, 1)}
	h := chat.NewHistory("sys")
	m := metrics.New()
	return NewRouter(Deps{Vox: fv, History: h, Metrics: m}), fv, h, m
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	r, fv, _, _ := setup(t)
	fv.busy.Store(true)

	resp := do(r, http.MethodGet, "/healthz", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body healthResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "ok" || !body.Busy || body.Turns != 1 {
		t.Errorf("unexpected health %+v", body)
	}
}

func TestHistory(t *testing.T) {
	r, _, h, _ := setup(t)
	h.Append(chat.Turn{Role: chat.RoleUser, Content: "こんにちは"})

	resp := do(r, http.MethodGet, "/history", "")
	var turns []chat.Turn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 || turns[0].Role != chat.RoleSystem || turns[1].Content != "こんにちは" {
		t.Errorf("unexpected history %+v", turns)
	}
}

func TestSay(t *testing.T) {
	r, fv, _, _ := setup(t)

	resp := do(r, http.MethodPost, "/say", `{"text": " 元気？ "}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body)
	}

	select {
	case got := <-fv.said:
		if got != "元気？" {
			t.Errorf("said %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("round trip never started")
	}
}

func TestSayRejects(t *testing.T) {
	tests := []struct {
		name string
		busy bool
		body string
		want int
	}{
		{"busy", true, `{"text": "hi"}`, http.StatusConflict},
		{"blank", false, `{"text": "   "}`, http.StatusBadRequest},
		{"not json", false, `hi`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fv, _, _ := setup(t)
			fv.busy.Store(tt.busy)

			resp := do(r, http.MethodPost, "/say", tt.body)
			if resp.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.Code)
			}
			select {
			case got := <-fv.said:
				t.Errorf("round trip started with %q", got)
			default:
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _, _, m := setup(t)
	m.RoundTrip(metrics.OutcomeOK)

	resp := do(r, http.MethodGet, "/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.Code != http.StatusOK || !strings.Contains(string(body), `emovox_round_trips_total{outcome="ok"} 1`) {
		t.Errorf("unexpected metrics response %d:\n%s", resp.Code, body)
	}
}
