package pool_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-sched/pool"
)

type token struct{ id int }

func TestTokenPoolFailsClosed(t *testing.T) {
	p, err := pool.NewTokenPool(3, func(i int) *token { return &token{id: i} })
	if err != nil {
		t.Fatalf("NewTokenPool: %v", err)
	}
	var got []*token
	for i := 0; i < 3; i++ {
		tok, ok := p.Get()
		if !ok {
			t.Fatalf("Get %d failed", i)
		}
		got = append(got, tok)
	}
	if _, ok := p.Get(); ok {
		t.Fatal("Get from exhausted pool succeeded")
	}
	if p.Available() != 0 {
		t.Errorf("Available = %d, want 0", p.Available())
	}
	for _, tok := range got {
		if !p.Put(tok) {
			t.Fatalf("Put token %d rejected", tok.id)
		}
	}
	if p.Put(&token{id: 99}) {
		t.Error("Put beyond capacity accepted")
	}
}

func TestTokenPoolInvalid(t *testing.T) {
	if _, err := pool.NewTokenPool(0, func(int) int { return 0 }); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestTokenPoolConcurrent(t *testing.T) {
	p, _ := pool.NewTokenPool(8, func(i int) *token { return &token{id: i} })
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if tok, ok := p.Get(); ok {
					p.Put(tok)
				}
			}
		}()
	}
	wg.Wait()
	if p.Available() != p.Size() {
		t.Errorf("Available = %d, want %d", p.Available(), p.Size())
	}
}
