package asr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingEngine records how many callers are inside Recognize at once.
type countingEngine struct {
	mu        sync.Mutex
	active    int
	maxActive int
	calls     int
}

func (e *countingEngine) Recognize(_ context.Context, _ []float32, _ Params) ([]Segment, error) {
	e.mu.Lock()
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()

	time.Sleep(time.Millisecond)

	e.mu.Lock()
	e.active--
	e.calls++
	e.mu.Unlock()
	return []Segment{{Text: "ok"}}, nil
}

func (e *countingEngine) Close() error { return nil }

func TestExclusiveAllowsOneCallerAtATime(t *testing.T) {
	engine := &countingEngine{}
	guard := NewExclusive(engine)

	const callers = 8
	const callsPerCaller = 5

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerCaller; j++ {
				if _, err := guard.Recognize(context.Background(), nil, Params{}); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if engine.maxActive != 1 {
		t.Fatalf("expected at most 1 caller inside the engine, saw %d", engine.maxActive)
	}
	if engine.calls != callers*callsPerCaller {
		t.Fatalf("expected %d calls, got %d", callers*callsPerCaller, engine.calls)
	}
}

type blockingEngine struct {
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Recognize(_ context.Context, _ []float32, _ Params) ([]Segment, error) {
	close(e.entered)
	<-e.release
	return nil, nil
}

func (e *blockingEngine) Close() error { return nil }

func TestExclusiveWaiterGivesUpOnContextEnd(t *testing.T) {
	engine := &blockingEngine{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	guard := NewExclusive(engine)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = guard.Recognize(context.Background(), nil, Params{})
	}()
	<-engine.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := guard.Recognize(ctx, nil, Params{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(engine.release)
	<-done
}
