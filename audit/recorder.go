package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ayamesys/gearbook/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types emitted by the booking engine.
const (
	EventBookingCreated    = "booking.created"
	EventBookingSuperseded = "booking.superseded"
	EventBookingRejected   = "booking.auto_rejected"
	EventStatusChanged     = "booking.status_changed"
	EventResourceCreated   = "resource.created"
	EventStockAdded        = "resource.stock_added"
	EventResourceStatusSet = "resource.status_set"
)

// Entry holds one event to be recorded. ActorName is snapshotted here;
// the log never joins back to an account.
type Entry struct {
	TraceID   string
	ActorID   int64
	ActorName string
	EventType string
	BookingID *int64
	Payload   interface{}
}

// Recorder is the event sink the booking engine emits to. It must be
// fire-and-forget: implementations may not block or fail the caller.
type Recorder interface {
	Record(entry Entry)
}

// Service records entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.EventLog
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates an event recorder Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.EventLog, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record enqueues an entry for async DB write. When the queue is full
// the entry is dropped with a warning; booking operations never wait on
// the audit trail.
func (svc *Service) Record(entry Entry) {
	payloadJSON, _ := json.Marshal(entry.Payload)
	record := &model.EventLog{
		TraceID:   entry.TraceID,
		ActorID:   entry.ActorID,
		ActorName: entry.ActorName,
		EventType: entry.EventType,
		BookingID: entry.BookingID,
		Payload:   datatypes.JSON(payloadJSON),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("event channel full, dropping entry",
			zap.String("event_type", entry.EventType))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.EventLog, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("event batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
