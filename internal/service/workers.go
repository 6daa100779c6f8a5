package service

import (
	"hash/fnv"
	"sync"

	"go.uber.org/zap"
)

// workerPool runs jobs on a fixed set of workers, routing each job by key
// so all uplinks of one device are processed in arrival order.
type workerPool struct {
	queues []chan func()
	wg     sync.WaitGroup
	logger *zap.Logger
}

func newWorkerPool(workers, queueDepth int, logger *zap.Logger) *workerPool {
	if workers < 1 {
		workers = 1
	}
	p := &workerPool{
		queues: make([]chan func(), workers),
		logger: logger,
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueDepth)
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *workerPool) run(i int) {
	defer p.wg.Done()
	for job := range p.queues[i] {
		job()
	}
}

// Submit queues the job on the worker owning the key. Blocks when that
// worker's queue is full, applying backpressure to the MQTT consumer.
func (p *workerPool) Submit(key string, job func()) {
	h := fnv.New32a()
	h.Write([]byte(key))
	p.queues[h.Sum32()%uint32(len(p.queues))] <- job
}

// Stop closes the queues and waits for in-flight jobs to finish.
func (p *workerPool) Stop() {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}
