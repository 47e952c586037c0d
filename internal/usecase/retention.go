package usecase

import (
	"context"
	"time"

	"github.com/semmidev/cloudvault/internal/domain"
)

// Retention prunes ledger entries older than retentionDays.
type Retention struct {
	history       domain.History
	logger        Logger
	retentionDays int
	now           func() time.Time
}

func NewRetention(history domain.History, logger Logger, retentionDays int) *Retention {
	return &Retention{
		history:       history,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (uc *Retention) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uc.retentionDays <= 0 {
		return nil
	}

	cutoff := uc.now().UTC().AddDate(0, 0, -uc.retentionDays)
	uc.logger.Infof("Starting history cleanup, retention: %d days (cutoff %s)",
		uc.retentionDays, cutoff.Format(time.RFC3339))

	var expired []int64
	for _, entry := range uc.history.List() {
		if entry.Timestamp.Before(cutoff) {
			expired = append(expired, entry.ID)
		}
	}

	if len(expired) == 0 {
		uc.logger.Infof("History cleanup completed, nothing to remove")
		return nil
	}

	remaining := uc.history.RemoveByIDs(expired)
	uc.logger.Infof("History cleanup completed: removed %d, %d remaining", len(expired), remaining)
	return nil
}
