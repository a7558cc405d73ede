package proxy

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string, origin Origin) *Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(raw, origin)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return ep
}

func TestPoolSelectEmpty(t *testing.T) {
	p := NewPool(3, 10)
	if ep := p.Select(); ep != nil {
		t.Fatalf("Select on empty pool = %v, want nil", ep)
	}
}

func TestPoolAddDoesNotOverwrite(t *testing.T) {
	p := NewPool(3, 10)
	if !p.Add(mustParse(t, "10.0.0.1:8080", OriginManual)) {
		t.Fatal("first Add = false, want true")
	}
	p.ReportFailure("10.0.0.1:8080")

	if p.Add(mustParse(t, "10.0.0.1:8080", OriginManual)) {
		t.Fatal("second Add = true, want false")
	}
	snap := p.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("pool size = %d, want 1", len(snap))
	}
	if snap[0].Failures != 1 {
		t.Fatalf("Failures = %d, want 1 (health state must survive re-add)", snap[0].Failures)
	}
}

func TestPoolFailureThresholdMarksFailed(t *testing.T) {
	p := NewPool(3, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))

	p.ReportFailure("10.0.0.1:8080")
	p.ReportFailure("10.0.0.1:8080")
	if st := p.Snapshot()[0].Status; st == StatusFailed {
		t.Fatalf("status = failed after 2 failures, want not failed until threshold 3")
	}
	p.ReportFailure("10.0.0.1:8080")
	if st := p.Snapshot()[0].Status; st != StatusFailed {
		t.Fatalf("status = %q after 3 failures, want %q", st, StatusFailed)
	}
}

func TestPoolSuccessResetsFailures(t *testing.T) {
	p := NewPool(3, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))
	p.ReportFailure("10.0.0.1:8080")
	p.ReportFailure("10.0.0.1:8080")
	p.ReportSuccess("10.0.0.1:8080")

	got := p.Snapshot()[0]
	if got.Failures != 0 {
		t.Fatalf("Failures = %d after success, want 0", got.Failures)
	}
	if got.Status != StatusHealthy {
		t.Fatalf("Status = %q after success, want %q", got.Status, StatusHealthy)
	}
}

func TestPoolSelectSkipsFailed(t *testing.T) {
	p := NewPool(1, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))
	p.Add(mustParse(t, "10.0.0.2:8080", OriginManual))
	p.ReportFailure("10.0.0.1:8080")

	for i := 0; i < 50; i++ {
		ep := p.Select()
		if ep == nil {
			t.Fatal("Select = nil with a healthy endpoint in the pool")
		}
		if ep.Key() == "10.0.0.1:8080" {
			t.Fatal("Select returned a failed endpoint while a non-failed one exists")
		}
	}
}

func TestPoolSelectDegradesWhenAllFailed(t *testing.T) {
	p := NewPool(1, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))
	p.ReportFailure("10.0.0.1:8080")

	if ep := p.Select(); ep == nil {
		t.Fatal("Select = nil when all endpoints failed, want degraded pick")
	}
}

func TestPoolSelectReturnsCopy(t *testing.T) {
	p := NewPool(3, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))

	ep := p.Select()
	ep.Failures = 99
	if got := p.Snapshot()[0].Failures; got != 0 {
		t.Fatalf("mutating Select result leaked into pool: Failures = %d, want 0", got)
	}
}

func TestPoolResetFailed(t *testing.T) {
	p := NewPool(1, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))
	p.Add(mustParse(t, "10.0.0.2:8080", OriginManual))
	p.ReportFailure("10.0.0.1:8080")

	if n := p.ResetFailed(); n != 1 {
		t.Fatalf("ResetFailed = %d, want 1", n)
	}
	for _, ep := range p.Snapshot() {
		if ep.Status == StatusFailed {
			t.Fatalf("endpoint %s still failed after reset", ep.Key())
		}
		if ep.Failures != 0 {
			t.Fatalf("endpoint %s Failures = %d after reset, want 0", ep.Key(), ep.Failures)
		}
	}
}

func TestPoolMergeEvictsHarvestedNotManual(t *testing.T) {
	p := NewPool(3, 2)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))

	old := mustParse(t, "10.0.0.2:8080", OriginHarvested)
	old.LastSuccess = time.Now().UTC().Add(-time.Hour)
	p.Add(old)

	fresh := mustParse(t, "10.0.0.3:8080", OriginHarvested)
	fresh.LastSuccess = time.Now().UTC()
	added := p.Merge([]*Endpoint{fresh})
	if added != 1 {
		t.Fatalf("Merge added = %d, want 1", added)
	}

	snap := p.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("pool size = %d after merge, want cap 2", len(snap))
	}
	for _, ep := range snap {
		if ep.Key() == "10.0.0.2:8080" {
			t.Fatal("oldest harvested endpoint survived eviction")
		}
		if ep.Origin == OriginManual && ep.Key() != "10.0.0.1:8080" {
			t.Fatal("manual endpoint was evicted")
		}
	}
}

func TestPoolStats(t *testing.T) {
	p := NewPool(1, 10)
	p.Add(mustParse(t, "10.0.0.1:8080", OriginManual))
	p.Add(mustParse(t, "10.0.0.2:8080", OriginHarvested))
	p.ReportFailure("10.0.0.2:8080")

	s := p.Stats()
	if s.Total != 2 {
		t.Fatalf("Total = %d, want 2", s.Total)
	}
	if s.Available != 1 {
		t.Fatalf("Available = %d, want 1", s.Available)
	}
	if s.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", s.Failed)
	}
	if s.Manual != 1 || s.Harvested != 1 {
		t.Fatalf("Manual/Harvested = %d/%d, want 1/1", s.Manual, s.Harvested)
	}
}
