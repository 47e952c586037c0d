package usecase

import "github.com/semmidev/cloudvault/internal/domain"

type History struct {
	history domain.History
	logger  Logger
}

func NewHistory(history domain.History, logger Logger) *History {
	return &History{history: history, logger: logger}
}

func (uc *History) List() []domain.HistoryEntry {
	return uc.history.List()
}

// RemoveByIDs drops the listed entries and returns how many remain.
func (uc *History) RemoveByIDs(ids []int64) int {
	remaining := uc.history.RemoveByIDs(ids)

	if len(ids) > 0 {
		uc.logger.Infof("Requested removal of %d history id(s), %d entries remaining", len(ids), remaining)
	}
	return remaining
}
