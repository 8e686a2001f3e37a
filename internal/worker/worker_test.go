package worker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"beachbookings/internal/database"
	"beachbookings/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:        id,
		Date:      time.Now().Add(24 * time.Hour),
		Duration:  60,
		UserID:    "u1",
		Players:   []string{"u1"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, nil, RetryPolicy{}, nil)

	booking := testBooking("b1")

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.SyncTaskUpsert, booking.ID, booking); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if sheets.upsertCalls != 1 {
		t.Fatalf("expected upsert call, got %d", sheets.upsertCalls)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(db, sheets, nil, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)

	booking := testBooking("b2")

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.SyncTaskUpsert, booking.ID, booking); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected retry to wait for next_retry_at, got %d pending", len(pending))
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(db, sheets, nil, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, models.SyncTaskUpsert, "b3", testBooking("b3")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}

	failed, err := db.GetFailedSyncTasks(ctx)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 || failed[0].LastError == nil || *failed[0].LastError != "fatal" {
		t.Fatalf("expected one failed task with last_error, got %+v", failed)
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	task := models.SyncTask{TaskType: models.SyncTaskUpsert, BookingID: "b4", Payload: "{broken"}
	if err := db.CreateSyncTask(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}
}

func TestSheetsWorker_EnqueueFullSync(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	lister := &fakeLister{bookings: []*models.Booking{testBooking("a"), testBooking("b")}}
	worker := NewSheetsWorker(db, sheets, lister, nil, RetryPolicy{MaxRetries: 3}, nil)

	ctx := context.Background()
	if err := worker.EnqueueFullSync(ctx); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, _ := db.GetPendingSyncTasks(ctx, 10)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].TaskType != models.SyncTaskFullSync {
		t.Fatalf("expected full sync task, got %s", tasks[0].TaskType)
	}

	worker.processTask(ctx, &tasks[0])
	if sheets.replaced != 2 {
		t.Fatalf("expected 2 bookings written, got %d", sheets.replaced)
	}
}

func TestSheetsWorker_HandleSheetTask(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(nil, sheets, &fakeLister{}, nil, RetryPolicy{MaxRetries: 3}, nil)

	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		err := worker.handleSheetTask(ctx, models.SyncTaskUpsert, sheetTaskPayload{Booking: testBooking("b1")})
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		if sheets.upsertCalls != 1 {
			t.Fatalf("expected 1 upsert call, got %d", sheets.upsertCalls)
		}
	})

	t.Run("UpsertWithoutBooking", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, models.SyncTaskUpsert, sheetTaskPayload{BookingID: "b1"}); err == nil {
			t.Fatalf("expected error for missing booking")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		err := worker.handleSheetTask(ctx, models.SyncTaskDelete, sheetTaskPayload{BookingID: "b123"})
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		if sheets.deleteCalls != 1 {
			t.Fatalf("expected 1 delete call, got %d", sheets.deleteCalls)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, "update_status", sheetTaskPayload{BookingID: "b1"}); err == nil {
			t.Fatalf("expected error for unknown task type")
		}
	})
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3}
	if policy.Exhausted(2) {
		t.Fatalf("attempt 2 of 3 should still retry")
	}
	if !policy.Exhausted(3) {
		t.Fatalf("attempt 3 of 3 should be exhausted")
	}
	if !(RetryPolicy{}).Exhausted(1) {
		t.Fatalf("zero budget should fail on first error")
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	var zero RetryPolicy
	if d := zero.NextDelay(0); d != time.Second {
		t.Fatalf("expected 1s fallback, got %s", d)
	}
	if d := zero.NextDelay(3); d != 4*time.Second {
		t.Fatalf("expected doubling from 1s, got %s", d)
	}

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := DefaultSheetsRetry()
	if got := policy.NextRetryAt(now, 1); !got.Equal(now.Add(2 * time.Second)) {
		t.Fatalf("unexpected first retry time %s", got)
	}
	if got := policy.NextRetryAt(now, 10); !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected capped retry time, got %s", got)
	}
}

func TestSheetsWorker_EnqueueTask(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	booking := testBooking("b1")

	t.Run("ValidTask", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, models.SyncTaskUpsert, "", booking); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		task, ok := worker.tryLocalQueue()
		if !ok || task.BookingID != "b1" {
			t.Fatalf("expected booking id taken from booking, got %+v", task)
		}
	})

	t.Run("InvalidTaskType", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, "", "b1", booking); err == nil {
			t.Fatalf("expected error for empty task type")
		}
	})

	t.Run("InvalidBookingID", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, models.SyncTaskDelete, "", nil); err == nil {
			t.Fatalf("expected error for missing booking id")
		}
	})
}

func TestSheetsWorker_RedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("quota")}
	worker := NewSheetsWorker(db, sheets, nil, client, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	if err := worker.EnqueueTask(ctx, models.SyncTaskDelete, "b9", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := worker.tryLocalQueue(); ok {
		t.Fatalf("expected task to go to redis, not memory")
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task in redis queue")
	}
	if task.BookingID != "b9" {
		t.Fatalf("unexpected task %+v", task)
	}

	worker.processTask(ctx, &task)

	dead, err := client.LLen(ctx, "sheets:deadletter").Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if dead != 1 {
		t.Fatalf("expected 1 dead letter, got %d", dead)
	}
}

func TestSheetsWorker_StartStops(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, nil, RetryPolicy{}, nil)
	worker.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := worker.EnqueueTask(ctx, models.SyncTaskUpsert, "b1", testBooking("b1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		status, _, _ := loadTaskStatus(t, db, 1)
		if status == models.SyncStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("task not processed, status %s", status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestSheetsWorker_DecodePayload(t *testing.T) {
	worker := NewSheetsWorker(nil, nil, nil, nil, RetryPolicy{}, nil)

	t.Run("ValidPayload", func(t *testing.T) {
		decoded, err := worker.decodePayload(`{"booking_id":"b123"}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.BookingID != "b123" || decoded.Booking != nil {
			t.Fatalf("unexpected decoded payload: %+v", decoded)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		if _, err := worker.decodePayload(`invalid json`); err == nil {
			t.Fatalf("expected error for invalid json")
		}
	})
}

// Helpers

type fakeSheets struct {
	err         error
	upsertCalls int
	deleteCalls int
	replaced    int
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, b *models.Booking) error {
	f.upsertCalls++
	return f.err
}

func (f *fakeSheets) DeleteBookingRow(ctx context.Context, id string) error {
	f.deleteCalls++
	return f.err
}

func (f *fakeSheets) ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error {
	f.replaced = len(bookings)
	return f.err
}

type fakeLister struct {
	bookings []*models.Booking
	err      error
}

func (f *fakeLister) GetBookings(ctx context.Context) ([]*models.Booking, error) {
	return f.bookings, f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
