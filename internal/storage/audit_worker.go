package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"review_gateway/internal/logging"
	"review_gateway/internal/models"
	"review_gateway/internal/queue"
)

// AuditStore persists review audit records
type AuditStore interface {
	Create(ctx context.Context, audit *models.ReviewAudit) error
	CreateBatch(ctx context.Context, audits []*models.ReviewAudit) error
}

// AuditWorker drains review audit records from a queue into the database
type AuditWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	store       AuditStore
	config      *queue.Config
	logger      *logging.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(q queue.Queue, dlq queue.DeadLetterQueue, store AuditStore, config *queue.Config) *AuditWorker {
	if config == nil {
		config = queue.DefaultConfig("review-audit")
	}

	return &AuditWorker{
		queue:       q,
		dlq:         dlq,
		store:       store,
		config:      config,
		logger:      logging.With("audit-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *AuditWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *AuditWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds an audit record to the queue
func (w *AuditWorker) Enqueue(ctx context.Context, audit *models.ReviewAudit) error {
	return w.queue.Enqueue(ctx, audit)
}

func (w *AuditWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Audit worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Audit worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

func (w *AuditWorker) processBatch(ctx context.Context) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Failed to dequeue audit records", "error", err)
		select {
		case <-time.After(time.Second):
		case <-w.stopChan:
		}
		return
	}

	if len(items) == 0 {
		return
	}

	audits := make([]*models.ReviewAudit, 0, len(items))
	for _, item := range items {
		audit, err := decodeAudit(item)
		if err != nil {
			w.logger.Error("Failed to decode audit record", "error", err)
			continue
		}
		audits = append(audits, audit)
	}

	if len(audits) == 0 {
		return
	}

	if err := w.store.CreateBatch(ctx, audits); err != nil {
		w.logger.Warn("Batch insert failed, falling back to individual inserts", "count", len(audits), "error", err)
		for _, audit := range audits {
			if err := w.processItem(ctx, audit); err != nil {
				w.logger.Error("Failed to store audit record", "audit_id", audit.ID, "error", err)
			}
		}
		return
	}

	w.logger.Debug("Stored audit batch", "count", len(audits))
}

// processItem stores one record with exponential backoff, then dead-letters it
func (w *AuditWorker) processItem(ctx context.Context, audit *models.ReviewAudit) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := w.store.Create(ctx, audit); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, audit, lastErr); err != nil {
			w.logger.Error("Failed to add to dead letter queue", "error", err)
		} else {
			w.logger.Warn("Audit record moved to DLQ", "audit_id", audit.ID, "error", lastErr)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func decodeAudit(item interface{}) (*models.ReviewAudit, error) {
	switch v := item.(type) {
	case *models.ReviewAudit:
		return v, nil
	case models.ReviewAudit:
		return &v, nil
	case []byte:
		return unmarshalAudit(v)
	case json.RawMessage:
		return unmarshalAudit(v)
	default:
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal item: %w", err)
		}
		return unmarshalAudit(data)
	}
}

func unmarshalAudit(data []byte) (*models.ReviewAudit, error) {
	var audit models.ReviewAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

// QueueLength returns the number of pending audit records
func (w *AuditWorker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetterItems returns records that could not be stored
func (w *AuditWorker) DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}
