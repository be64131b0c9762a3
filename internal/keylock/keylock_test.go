package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New(4)
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("user:1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100, got %d", counter)
	}
	if m.Len() != 0 {
		t.Errorf("expected all entries released, %d left", m.Len())
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	m := New(1)
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	if m.Len() != 1 {
		t.Errorf("expected only key a to be held, got %d", m.Len())
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	m := New(0)
	unlock := m.Lock("k")
	unlock()
	unlock()

	again := m.Lock("k")
	again()
	if m.Len() != 0 {
		t.Errorf("expected no entries, got %d", m.Len())
	}
}
