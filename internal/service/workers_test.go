package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerPoolPreservesPerKeyOrder(t *testing.T) {
	p := newWorkerPool(4, 16, zap.NewNop())

	var mu sync.Mutex
	seen := make(map[string][]int)

	for i := 0; i < 20; i++ {
		for _, key := range []string{"dev-a", "dev-b", "dev-c"} {
			key, i := key, i
			p.Submit(key, func() {
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
			})
		}
	}
	p.Stop()

	for key, order := range seen {
		assert.Len(t, order, 20, key)
		assert.IsIncreasing(t, order, "jobs for %s ran out of order", key)
	}
}

func TestWorkerPoolStopDrains(t *testing.T) {
	p := newWorkerPool(2, 8, zap.NewNop())

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		p.Submit("key", func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	p.Stop()
	assert.Equal(t, 10, count)
}

func TestWorkerPoolMinimumOneWorker(t *testing.T) {
	p := newWorkerPool(0, 1, zap.NewNop())
	done := make(chan struct{})
	p.Submit("k", func() { close(done) })
	<-done
	p.Stop()
}
