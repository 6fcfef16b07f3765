package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/port"
)

const (
	scanLockKey = "relabel:scan"
	scanLockTTL = 30 * time.Second
)

// RelabelService finds stored locations written in legacy formats and queues
// rewrites to their canonical form.
type RelabelService struct {
	db       port.DatabaseRepository
	cache    port.CacheRepository
	logger   *logrus.Logger
	jobQueue chan domain.RelabelJob

	// cursor is the last record ID a scan handled; scans resume after it
	// and wrap to the start once a batch comes back short.
	mu     sync.Mutex
	cursor string
}

func NewRelabelService(db port.DatabaseRepository, cache port.CacheRepository, logger *logrus.Logger, queueSize int) *RelabelService {
	return &RelabelService{
		db:       db,
		cache:    cache,
		logger:   logger,
		jobQueue: make(chan domain.RelabelJob, queueSize),
	}
}

// Scan queues pending jobs for up to limit non-canonical records and returns
// how many were queued. Rows that cannot be parsed are logged and left alone;
// the scan cursor moves past them so later scans reach the rows behind them.
// A full queue ends the batch early and the next scan resumes from there.
func (s *RelabelService) Scan(ctx context.Context, limit int) (int, error) {
	release, err := s.cache.TryLock(ctx, scanLockKey, scanLockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire scan lock: %w", err)
	}
	if release == nil {
		return 0, ErrScanInProgress
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.WithField("module", "relabel").WithError(err).Warn("release scan lock")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.db.ListNonCanonicalLocations(ctx, s.cursor, limit)
	if err != nil {
		return 0, fmt.Errorf("list non-canonical locations: %w", err)
	}

	queued := 0
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return queued, err
		}

		job, ok := domain.NewRelabelJob(r.ID, r.Location)
		if ok && job.Status == domain.RelabelStatusRejected {
			s.logger.WithFields(logrus.Fields{
				"module":    "relabel",
				"record_id": r.ID,
				"location":  r.Location,
			}).Warn("unrecognized location left unchanged")
		} else if ok {
			select {
			case s.jobQueue <- job:
				queued++
			default:
				return queued, nil
			}
		}
		s.cursor = r.ID
	}

	if len(records) < limit {
		s.cursor = ""
	}
	return queued, nil
}

func (s *RelabelService) GetJobQueue() <-chan domain.RelabelJob {
	return s.jobQueue
}

func (s *RelabelService) Close() {
	close(s.jobQueue)
}
