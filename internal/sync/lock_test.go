package sync

import (
	"sync"
	"testing"
)

func TestKeyLockMutualExclusion(t *testing.T) {
	kl := NewKeyLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("shared")
			counter++
			kl.Unlock("shared")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("a")
	defer kl.Unlock("a")

	// A different key must not be blocked.
	if !kl.TryLock("b") {
		t.Error("lock on key a must not block key b")
	}
	kl.Unlock("b")
}

func TestKeyLockTryLock(t *testing.T) {
	kl := NewKeyLock()

	if !kl.TryLock("k") {
		t.Fatal("first TryLock should succeed")
	}
	if kl.TryLock("k") {
		t.Error("second TryLock on a held key should fail")
	}
	kl.Unlock("k")
	if !kl.TryLock("k") {
		t.Error("TryLock after Unlock should succeed")
	}
	kl.Unlock("k")
}

func TestKeyLockUnlockUnknownKey(t *testing.T) {
	kl := NewKeyLock()
	kl.Unlock("never-locked") // must not panic
}
