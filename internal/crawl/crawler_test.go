package crawl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"carwatch-engine/internal/domain"
)

type stubFetcher struct {
	body []byte
	err  error
}

func (f stubFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.body, 200, nil
}

type stubParser struct {
	ids []string
}

func (p stubParser) Parse(body []byte) []domain.Listing {
	out := make([]domain.Listing, 0, len(p.ids))
	for _, id := range p.ids {
		out = append(out, domain.Listing{ID: id, Title: "listing " + id})
	}
	return out
}

func TestRunOnceEmitsOnlyNewListings(t *testing.T) {
	seen := NewSeenSet()
	var emitted []string
	c := New(stubFetcher{body: []byte("page")}, stubParser{ids: []string{"101", "102", "101"}}, seen,
		Config{TargetURL: "http://example.test"}, func(l domain.Listing) {
			emitted = append(emitted, l.ID)
		})

	if got := c.RunOnce(context.Background()); got != 2 {
		t.Fatalf("RunOnce = %d, want 2 (in-page duplicate collapses)", got)
	}
	if len(emitted) != 2 || emitted[0] != "101" || emitted[1] != "102" {
		t.Fatalf("emitted = %v, want [101 102] in page order", emitted)
	}

	// Second cycle over the same page emits nothing.
	emitted = nil
	if got := c.RunOnce(context.Background()); got != 0 {
		t.Fatalf("second RunOnce = %d, want 0", got)
	}
	if len(emitted) != 0 {
		t.Fatalf("emitted = %v on unchanged page, want none", emitted)
	}
}

func TestRunOnceFetchErrorSkipsCycle(t *testing.T) {
	seen := NewSeenSet()
	calls := 0
	c := New(stubFetcher{err: errors.New("boom")}, stubParser{ids: []string{"101"}}, seen,
		Config{TargetURL: "http://example.test"}, func(domain.Listing) { calls++ })

	if got := c.RunOnce(context.Background()); got != 0 {
		t.Fatalf("RunOnce = %d on fetch error, want 0", got)
	}
	if calls != 0 {
		t.Fatalf("onNew called %d times on fetch error, want 0", calls)
	}
	if st := c.Status(); st.LastError == "" {
		t.Fatal("Status.LastError empty after fetch error")
	}
	if seen.Len() != 0 {
		t.Fatalf("seen grew to %d on a failed cycle, want 0", seen.Len())
	}
}

func TestStatusTracksCycles(t *testing.T) {
	seen := NewSeenSet()
	c := New(stubFetcher{body: []byte("page")}, stubParser{ids: []string{"1", "2"}}, seen,
		Config{TargetURL: "http://example.test"}, nil)

	c.RunOnce(context.Background())
	st := c.Status()
	if st.TotalCycles != 1 {
		t.Fatalf("TotalCycles = %d, want 1", st.TotalCycles)
	}
	if st.TotalListings != 2 {
		t.Fatalf("TotalListings = %d, want 2", st.TotalListings)
	}
	if st.LastNew != 2 {
		t.Fatalf("LastNew = %d, want 2", st.LastNew)
	}
	if st.LastError != "" {
		t.Fatalf("LastError = %q, want empty", st.LastError)
	}
	if st.LastOkAt == "" || st.LastRunAt == "" {
		t.Fatal("timestamps not recorded")
	}
}

func TestStatusSurvivesConcurrentCycles(t *testing.T) {
	seen := NewSeenSet()
	c := New(stubFetcher{body: []byte("page")}, stubParser{ids: []string{"1"}}, seen,
		Config{TargetURL: "http://example.test"}, nil)

	const cycles = 32
	var wg sync.WaitGroup
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	st := c.Status()
	if st.TotalCycles != cycles {
		t.Fatalf("TotalCycles = %d, want %d (no cycle's update may be lost)", st.TotalCycles, cycles)
	}
	if st.LastOkAt == "" || st.LastRunAt == "" {
		t.Fatal("timestamps lost under concurrent cycles")
	}
	if st.LastError != "" {
		t.Fatalf("LastError = %q, want empty", st.LastError)
	}
}

func TestResetSeenReannounces(t *testing.T) {
	seen := NewSeenSet()
	count := 0
	c := New(stubFetcher{body: []byte("page")}, stubParser{ids: []string{"101"}}, seen,
		Config{TargetURL: "http://example.test"}, func(domain.Listing) { count++ })

	c.RunOnce(context.Background())
	c.ResetSeen()
	c.RunOnce(context.Background())

	if count != 2 {
		t.Fatalf("onNew called %d times across reset, want 2", count)
	}
}
