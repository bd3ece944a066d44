package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"sorted and deduplicated", []string{"b", "a", "b"}, []string{"a", "b"}},
		{"empty keys dropped", []string{"", "x", ""}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !slices.Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
		total   int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(ctx, []string{"doctor:D001:2030-03-11"}, func(context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				total++
				time.Sleep(100 * time.Microsecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLock: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Fatalf("%d callers held the lock at once", maxSeen.Load())
	}
	if total != 50 {
		t.Fatalf("total = %d, want 50", total)
	}
	if l.Len() != 0 {
		t.Fatalf("%d entries leaked", l.Len())
	}
}

func TestLocal_OverlappingKeySetsDoNotDeadlock(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := range 20 {
		keys := []string{"a", "b"}
		if i%2 == 1 {
			keys = []string{"b", "a"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.WithLock(ctx, keys, func(context.Context) error { return nil }); err != nil {
				t.Errorf("WithLock: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestLocal_WaitHonoursContext(t *testing.T) {
	l := NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), []string{"k"}, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := l.WithLock(ctx, []string{"k"}, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if called {
		t.Fatal("fn must not run without the lock")
	}

	close(release)
	if err := l.WithLock(context.Background(), []string{"k"}, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("%d entries leaked", l.Len())
	}
}

func TestLocal_ReturnsFnError(t *testing.T) {
	l := NewLocal()
	boom := errors.New("boom")

	if err := l.WithLock(context.Background(), []string{"k"}, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if l.Len() != 0 {
		t.Fatal("lock must be released after fn fails")
	}
}
