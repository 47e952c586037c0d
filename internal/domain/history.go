package domain

import "time"

type Operation string

const (
	OperationUpload Operation = "upload"
	OperationDelete Operation = "delete"
)

// HistoryEntry records one successful storage operation. Size is only set
// for uploads.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Operation Operation `json:"operation"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	Size      *int64    `json:"size,omitempty"`
}

// History is the operation ledger. Entries keep insertion order and are
// never modified after Record returns them.
type History interface {
	Record(op Operation, filename string, size *int64) HistoryEntry
	List() []HistoryEntry
	RemoveByIDs(ids []int64) int
}
