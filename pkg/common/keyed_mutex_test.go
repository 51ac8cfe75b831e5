package common

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("subject-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()

	unlockA := m.Lock("subject-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := m.Lock("subject-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	default:
		// Give the goroutine a chance to run.
		<-done
	}
}

func TestKeyedMutex_EntryRemovedAfterRelease(t *testing.T) {
	m := NewKeyedMutex()

	unlock := m.Lock("subject-1")
	unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}
