package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeState struct {
	state     string
	connected bool
	interval  time.Duration
}

func (f *fakeState) StateName() string       { return f.state }
func (f *fakeState) IsConnected() bool       { return f.connected }
func (f *fakeState) Interval() time.Duration { return f.interval }

func TestCollector_Collect(t *testing.T) {
	state := &fakeState{state: "streaming", connected: true, interval: 250 * time.Millisecond}
	NewCollector(state, time.Second).Collect()

	if got := testutil.ToFloat64(ConnectionStatus); got != 1 {
		t.Errorf("ConnectionStatus = %v, want 1", got)
	}
	if got := testutil.ToFloat64(StreamInterval); got != 0.25 {
		t.Errorf("StreamInterval = %v, want 0.25", got)
	}
	if got := testutil.ToFloat64(ServerState.WithLabelValues("streaming")); got != 1 {
		t.Errorf("streaming state = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ServerState.WithLabelValues("listening")); got != 0 {
		t.Errorf("listening state = %v, want 0", got)
	}
}

func TestCollector_StartStop(t *testing.T) {
	state := &fakeState{state: "listening"}
	c := NewCollector(state, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	if got := testutil.ToFloat64(ConnectionStatus); got != 0 {
		t.Errorf("ConnectionStatus = %v, want 0", got)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	r := mux.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}
