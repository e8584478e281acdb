package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	item := "audit-1"
	if err := q.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	items, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].(string) != item {
		t.Errorf("Expected %s, got %v", item, items[0])
	}
}

func TestMemoryQueue_MultipleBatch(t *testing.T) {
	config := DefaultConfig("test")
	config.BatchSize = 5
	q := NewMemoryQueue(config)
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	items, err := q.Dequeue(ctx, 5)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(items))
	}
	for i, item := range items {
		if item.(int) != i {
			t.Errorf("items[%d] = %v, want %d", i, item, i)
		}
	}

	items, err = q.Dequeue(ctx, 10)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(items))
	}
}

func TestMemoryQueue_DequeueWithTimeout(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	start := time.Now()
	items, err := q.DequeueWithTimeout(ctx, 10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected 0 items, got %d", len(items))
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Returned too early: %v", elapsed)
	}

	if err := q.Enqueue(ctx, "x"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	items, err = q.DequeueWithTimeout(ctx, 10, time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestMemoryQueue_Length(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	length, err := q.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if length != 3 {
		t.Errorf("Expected length 3, got %d", length)
	}
}

func TestMemoryQueue_Concurrent(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	const producers, perProducer = 5, 20
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(ctx, p*perProducer+i); err != nil {
					t.Errorf("Enqueue failed: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	seen := 0
	for seen < producers*perProducer {
		items, err := q.DequeueWithTimeout(ctx, 25, time.Second)
		if err != nil {
			t.Fatalf("DequeueWithTimeout failed: %v", err)
		}
		if len(items) == 0 {
			t.Fatalf("queue drained early after %d items", seen)
		}
		seen += len(items)
	}
}

func TestMemoryQueue_CloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background(), 1)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("Expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Close")
	}
}

func TestMemoryQueue_ClosedQueue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	q.Close()
	// Closing twice is safe
	q.Close()

	ctx := context.Background()

	if err := q.Enqueue(ctx, "x"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	if _, err := q.Length(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}

func TestMemoryDeadLetterQueue_AddList(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := dlq.Add(ctx, i, errors.New("insert failed")); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	items, err := dlq.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Error != "insert failed" {
		t.Errorf("Expected error message, got %q", items[0].Error)
	}
	if items[0].ID == items[1].ID {
		t.Error("Dead letter IDs should be unique")
	}

	items, err = dlq.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
}

func TestMemoryDeadLetterQueue_Remove(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()

	if err := dlq.Add(ctx, "a", errors.New("boom")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	items, _ := dlq.List(ctx, 0)

	if err := dlq.Remove(ctx, items[0].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := dlq.Remove(ctx, items[0].ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	items, _ = dlq.List(ctx, 0)
	if len(items) != 0 {
		t.Errorf("Expected empty DLQ, got %d items", len(items))
	}
}

func TestMemoryDeadLetterQueue_Closed(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	dlq.Close()

	if err := dlq.Add(context.Background(), "a", errors.New("boom")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}
