package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hospitalattendance/internal/attendance"
	"hospitalattendance/internal/queue"
)

// RecordFinder loads a persisted record; nil, nil when absent.
type RecordFinder interface {
	FindByID(ctx context.Context, id string) (*attendance.Record, error)
}

// Processor turns recorded-attendance events into audit entries.
type Processor struct {
	records RecordFinder
	log     Log
	logged  prometheus.Counter
	now     func() time.Time
	logger  *zap.Logger
}

// NewProcessor wires a processor; logged may be nil.
func NewProcessor(records RecordFinder, log Log, logged prometheus.Counter) *Processor {
	return &Processor{
		records: records,
		log:     log,
		logged:  logged,
		now:     time.Now,
		logger:  zap.L().Named("audit"),
	}
}

// Process handles one message. It reports whether an entry was written.
func (p *Processor) Process(ctx context.Context, msg queue.Message) (bool, error) {
	if msg.Type != queue.TypeRecorded {
		return false, nil
	}
	rec, err := p.records.FindByID(ctx, msg.RecordID)
	if err != nil {
		return false, fmt.Errorf("load record %s: %w", msg.RecordID, err)
	}
	if rec == nil {
		p.logger.Warn("recorded event for unknown record", zap.String("record", msg.RecordID))
		return false, nil
	}
	if rec.IsValid {
		return false, nil
	}
	if err := p.log.Append(ctx, FromRecord(*rec, p.now())); err != nil {
		return false, fmt.Errorf("append audit entry: %w", err)
	}
	if p.logged != nil {
		p.logged.Inc()
	}
	return true, nil
}

// Run processes messages until the channel closes.
func (p *Processor) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		written, err := p.Process(ctx, msg)
		if err != nil {
			p.logger.Error("process event failed", zap.String("record", msg.RecordID), zap.Error(err))
			continue
		}
		if written {
			p.logger.Info("invalid attempt audited",
				zap.String("record", msg.RecordID), zap.String("student", msg.StudentID))
		}
	}
}
