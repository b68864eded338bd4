package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const sweepBatchSize = 500

// Worker periodically expires credit lots past their expiry date
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new expiration sweep worker
func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 1 * time.Hour // Default to running every hour
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Msg("Starting credit expiration worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping credit expiration worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	swept, err := w.svc.ExpireDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("credit expiration sweep failed")
		return
	}
	if swept > 0 {
		log.Info().Int("users", swept).Msg("credit expiration sweep completed")
	}
}
