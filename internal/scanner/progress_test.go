package scanner

import (
	"sync"
	"testing"
)

func TestProgressConcurrentIncrementsAreNeverLost(t *testing.T) {
	const workers = 25
	const perWorker = 200
	const total = workers * perWorker

	p := NewProgress()
	p.SetTotal(total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				p.RecordCompletion()
			}
		}()
	}
	wg.Wait()

	if got := p.Completed(); got != total {
		t.Fatalf("Completed = %d, want %d (lost updates)", got, total)
	}
	if got := p.Total(); got != total {
		t.Fatalf("Total = %d, want %d", got, total)
	}
	if !p.Done() {
		t.Error("Done should be true once completed == total")
	}
	if f := p.Fraction(); f != 1.0 {
		t.Errorf("Fraction = %f, want 1.0", f)
	}
}

func TestProgressReadersNeverObserveMoreThanTotal(t *testing.T) {
	const total = 500

	p := NewProgress()
	p.SetTotal(total)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			p.RecordCompletion()
		}
	}()

	for {
		completed := p.Completed()
		if completed > p.Total() {
			t.Fatalf("observed completed %d > total %d", completed, p.Total())
		}
		select {
		case <-done:
			if p.Completed() != total {
				t.Fatalf("Completed = %d, want %d", p.Completed(), total)
			}
			return
		default:
		}
	}
}

func TestProgressFreshTrackerStartsAtZero(t *testing.T) {
	p := NewProgress()
	if p.Completed() != 0 || p.Total() != 0 || p.Responded() != 0 {
		t.Error("fresh tracker must start with zero counters")
	}
	if p.Fraction() != 0 {
		t.Errorf("Fraction with zero total = %f, want 0", p.Fraction())
	}
	if p.Done() {
		t.Error("fresh tracker must not report done")
	}
}

func TestProgressRespondedCount(t *testing.T) {
	p := NewProgress()
	p.SetTotal(10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(responded bool) {
			defer wg.Done()
			p.RecordCompletion()
			if responded {
				p.RecordResponse()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if got := p.Responded(); got != 5 {
		t.Errorf("Responded = %d, want 5", got)
	}
}
