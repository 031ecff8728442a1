package costs

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func newTestTracker(t *testing.T) CostTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "costs.db")
	tracker, err := NewCostTracker(logger.NewNop(), nil, dbPath)
	if err != nil {
		t.Fatalf("NewCostTracker: %v", err)
	}
	return tracker
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceForKnownAndDefault(t *testing.T) {
	tracker := newTestTracker(t)
	if p := tracker.PriceFor("fal-ai/nano-banana-pro"); !approx(p, 0.15) {
		t.Fatalf("nano price: %v", p)
	}
	// Editor alias rows resolve without the full endpoint path.
	if p := tracker.PriceFor("fal-ai/nanobanana_edit"); !approx(p, 0.15) {
		t.Fatalf("alias price: %v", p)
	}
	if p := tracker.PriceFor("some/unknown/model"); !approx(p, 0.05) {
		t.Fatalf("default price: %v", p)
	}
}

func TestTrackWritesBothLedgers(t *testing.T) {
	tracker := newTestTracker(t)
	st := &domain.State{Project: domain.Project{ID: "p1"}}

	cost := tracker.Track(st, "fal-ai/flux-2", 3, "render seq_01_sh01")
	if !approx(cost, 0.036) {
		t.Fatalf("charged: %v", cost)
	}
	if st.Costs == nil || len(st.Costs.Calls) != 1 {
		t.Fatalf("project ledger: %+v", st.Costs)
	}
	if !approx(st.Costs.Total, cost) {
		t.Fatalf("project total: %v", st.Costs.Total)
	}

	tracker.Track(nil, "fal-ai/whisper", 1, "transcribe")

	session, err := tracker.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(session.Calls) != 2 {
		t.Fatalf("session calls: %d", len(session.Calls))
	}
	if !approx(session.Total, cost+0.0013) {
		t.Fatalf("session total: %v", session.Total)
	}
	if session.Calls[0].ProjectID != "p1" || session.Calls[1].ProjectID != "" {
		t.Fatalf("project attribution: %+v", session.Calls)
	}
}

func TestTrackClampsUnits(t *testing.T) {
	tracker := newTestTracker(t)
	if cost := tracker.Track(nil, "fal-ai/flux-2", 0, ""); !approx(cost, 0.012) {
		t.Fatalf("zero units charged: %v", cost)
	}
}

func TestResetSessionClearsLedger(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.Track(nil, "fal-ai/flux-2", 1, "")
	if err := tracker.ResetSession(); err != nil {
		t.Fatalf("ResetSession: %v", err)
	}
	session, err := tracker.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if session.Total != 0 || len(session.Calls) != 0 {
		t.Fatalf("ledger not empty: %+v", session)
	}
}

func TestSessionLedgerStaysBounded(t *testing.T) {
	tracker := newTestTracker(t)
	for i := 0; i < domain.SessionCallCap+10; i++ {
		tracker.Track(nil, "fal-ai/flux-2", 1, "")
	}
	session, err := tracker.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(session.Calls) > domain.SessionCallCap {
		t.Fatalf("ledger unbounded: %d calls", len(session.Calls))
	}
}

func TestRefreshPricingWithoutClientIsNoop(t *testing.T) {
	tracker := newTestTracker(t)
	if err := tracker.RefreshPricing(context.Background()); err != nil {
		t.Fatalf("RefreshPricing: %v", err)
	}
}
