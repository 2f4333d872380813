package bridge

import (
	"runtime"
	"testing"
)

func TestSignalStartsWaiting(t *testing.T) {
	s := NewSignal()

	if _, ok := s.Poll(); ok {
		t.Fatal("fresh signal should not be ready")
	}
	if tok := s.Peek(); !tok.Wait || tok.Vec != 0 {
		t.Errorf("expected {0 true}, got %+v", tok)
	}
}

func TestSignalPublishThenPoll(t *testing.T) {
	s := NewSignal()

	s.Publish()
	tok, ok := s.Poll()
	if !ok {
		t.Fatal("expected ready after publish")
	}
	if tok.Vec != 1 || tok.Wait {
		t.Errorf("expected {1 false}, got %+v", tok)
	}
	if _, ok := s.Poll(); ok {
		t.Error("second poll should wait for the next publish")
	}
	if !s.Peek().Wait {
		t.Error("poll should re-arm wait")
	}
}

func TestSignalCollapsesPublishes(t *testing.T) {
	s := NewSignal()

	s.Publish()
	s.Publish()
	tok, ok := s.Poll()
	if !ok || tok.Vec != 2 {
		t.Fatalf("expected one ready token with vec 2, got %+v %v", tok, ok)
	}
	if _, ok := s.Poll(); ok {
		t.Error("two publishes should be observed once")
	}
}

// TestSignalConcurrent publishes from one goroutine while another polls,
// as the audio and control contexts do. Versions must never go backwards
// and the last one must be seen.
func TestSignalConcurrent(t *testing.T) {
	const n = 10000
	s := NewSignal()

	go func() {
		for i := 0; i < n; i++ {
			s.Publish()
		}
	}()

	var last uint32
	for last != n {
		tok, ok := s.Poll()
		if !ok {
			runtime.Gosched()
			continue
		}
		if tok.Vec < last {
			t.Fatalf("version went backwards: %d after %d", tok.Vec, last)
		}
		last = tok.Vec
	}
}
