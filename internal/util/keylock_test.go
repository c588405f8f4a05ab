package util

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("entity-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
}

func TestKeyedMutex_LockAllOverlappingSets(t *testing.T) {
	km := NewKeyedMutex()

	counters := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		keys := []string{"a", "b"}
		if i%2 == 0 {
			keys = []string{"b", "a", "a"}
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			unlock := km.LockAll(keys)
			defer unlock()
			counters["a"]++
			counters["b"]++
		}(keys)
	}
	wg.Wait()

	if counters["a"] != 20 || counters["b"] != 20 {
		t.Fatalf("expected 20/20 increments, got %v", counters)
	}
}
