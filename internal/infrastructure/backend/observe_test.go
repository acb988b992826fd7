package backend

import (
	"errors"
	"fmt"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/pkg/metrics"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials), "invalid_credentials"},
		{fmt.Errorf("select: %w", domain.ErrUnauthenticated), "unauthenticated"},
		{fmt.Errorf("insert: %w", domain.ErrForbidden), "forbidden"},
		{domain.ErrNotFound, "not_found"},
		{domain.ErrConflict, "conflict"},
		{fmt.Errorf("dial: %w", domain.ErrBackendUnavailable), "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err); got != tc.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func counterValue(t *testing.T, op, outcome string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.BackendCallsTotal.WithLabelValues(op, outcome).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserve_CountsByOutcome(t *testing.T) {
	before := counterValue(t, "clients.list", "forbidden")

	Observe("clients.list", time.Now(), fmt.Errorf("list: %w", domain.ErrForbidden))

	if got := counterValue(t, "clients.list", "forbidden"); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}
}
