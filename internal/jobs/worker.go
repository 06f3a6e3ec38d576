// Package jobs runs background maintenance on a poll interval.
package jobs

import (
	"context"
	"log"
	"time"
)

// Sweeper defines the interface for one maintenance pass
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Worker runs a Sweeper on a fixed poll interval until stopped
type Worker struct {
	sweeper      Sweeper
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(sweeper Sweeper, pollInterval time.Duration) *Worker {
	return &Worker{
		sweeper:      sweeper,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.sweeper.Sweep(ctx); err != nil {
				log.Printf("Error during sweep: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Worker shutdown complete")
}
