package export

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/events"
)

// Destination is the interface for an export target (S3, local file, etc.).
type Destination interface {
	// Name identifies the destination in logs and events.
	Name() string

	// Write sends the serialized payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	store        ClientLister
	destinations []Destination
	interval     time.Duration
	format       string // "jsonl" or "csv"
	publisher    events.Publisher
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s ClientLister, destinations []Destination, interval time.Duration, format string, publisher events.Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		format:       format,
		publisher:    publisher,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	// Run once immediately at startup.
	s.ExportOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExportOnce(ctx)
		}
	}
}

// ExportOnce serializes the client book once and writes it to every
// destination. Per-destination failures are logged and published but do
// not abort the remaining destinations.
func (s *Scheduler) ExportOnce(ctx context.Context) {
	var buf bytes.Buffer
	var count int
	var err error
	switch s.format {
	case "csv":
		count, err = ExportCSV(ctx, s.store, &buf)
	default:
		count, err = ExportJSONL(ctx, s.store, &buf)
	}
	if err != nil {
		s.logger.Error("export failed", "format", s.format, "err", err)
		return
	}
	data := buf.Bytes()

	for _, dest := range s.destinations {
		s.publishEvent(ctx, events.TopicExportStarted, events.ExportStarted{
			Destination: dest.Name(),
			Format:      s.format,
		})

		finished := events.ExportFinished{
			Destination: dest.Name(),
			Format:      s.format,
			Clients:     count,
		}
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("export destination write failed", "destination", dest.Name(), "err", err)
			finished.Error = err.Error()
		}
		s.publishEvent(ctx, events.TopicExportFinished, finished)
	}

	s.logger.Info("export completed", "destinations", len(s.destinations), "clients", count, "bytes", len(data))
}

func (s *Scheduler) publishEvent(ctx context.Context, topic string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish export event", "topic", topic, "err", err)
	}
}
