package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/documents", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := newRouter()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/search?text=go", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/search", "200")); v < 1 {
		t.Errorf("expected requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusAndMethodLabels(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method, path, route, status string
	}{
		{"GET", "/boom", "/boom", "500"},
		{"POST", "/documents", "/documents", "201"},
		{"GET", "/documents/abc", "/documents/{id}", "404"},
		{"GET", "/documents/def", "/documents/{id}", "404"},
	}
	for _, tc := range tests {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, http.NoBody))
		if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status)); v < 1 {
			t.Errorf("%s %s: expected count under route %q status %s, got %f", tc.method, tc.path, tc.route, tc.status, v)
		}
	}
}

func TestRouteLabel_NoChiContext(t *testing.T) {
	if got := routeLabel(httptest.NewRequest("GET", "/x", http.NoBody)); got != unmatchedRoute {
		t.Errorf("expected %q, got %q", unmatchedRoute, got)
	}
}

func TestMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var during float64
	r.Get("/search", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight)
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsInFlight)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/search", http.NoBody))

	if during != before+1 {
		t.Errorf("expected in-flight %f during request, got %f", before+1, during)
	}
	if after := testutil.ToFloat64(httpRequestsInFlight); after != before {
		t.Errorf("expected in-flight %f after request, got %f", before, after)
	}
}

func TestRegisterHTTPMetrics_Idempotent(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics()
}
