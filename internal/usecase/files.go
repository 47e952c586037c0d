package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/semmidev/cloudvault/internal/domain"
)

const notifyTimeout = 30 * time.Second

// Files runs gateway operations and records the successful uploads and
// deletes in the history ledger.
type Files struct {
	storage   domain.Storage
	history   domain.History
	notifiers []NotifyTarget
	logger    Logger
}

type NotifyTarget struct {
	Name     string
	Notifier domain.Notifier
}

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

func NewFiles(
	storage domain.Storage,
	history domain.History,
	notifiers []NotifyTarget,
	logger Logger,
) *Files {
	return &Files{
		storage:   storage,
		history:   history,
		notifiers: notifiers,
		logger:    logger,
	}
}

func (uc *Files) Upload(ctx context.Context, key string, body io.Reader, size int64) (domain.HistoryEntry, error) {
	if key == "" {
		return domain.HistoryEntry{}, fmt.Errorf("upload: empty key: %w", domain.ErrInvalidArgument)
	}

	start := time.Now()
	counter := &countingReader{r: body}

	if err := uc.storage.Upload(ctx, key, counter, size); err != nil {
		return domain.HistoryEntry{}, storageErr("upload", key, err)
	}

	written := counter.n
	entry := uc.history.Record(domain.OperationUpload, key, &written)

	uc.logger.Infof("Uploaded %s (%.2f MB) in %s",
		key, float64(written)/(1024*1024), time.Since(start).Round(time.Millisecond))

	uc.notify(ctx, entry)
	return entry, nil
}

func (uc *Files) Download(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("download: empty key: %w", domain.ErrInvalidArgument)
	}

	data, err := uc.storage.Download(ctx, key)
	if err != nil {
		return nil, storageErr("download", key, err)
	}
	return data, nil
}

func (uc *Files) List(ctx context.Context) ([]string, error) {
	keys, err := uc.storage.List(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) {
			return nil, fmt.Errorf("list: %w", err)
		}
		return nil, fmt.Errorf("list: %w: %w", domain.ErrStorage, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (uc *Files) Delete(ctx context.Context, key string) (domain.HistoryEntry, error) {
	if key == "" {
		return domain.HistoryEntry{}, fmt.Errorf("delete: empty key: %w", domain.ErrInvalidArgument)
	}

	if err := uc.storage.Delete(ctx, key); err != nil {
		return domain.HistoryEntry{}, storageErr("delete", key, err)
	}

	entry := uc.history.Record(domain.OperationDelete, key, nil)
	uc.logger.Infof("Deleted %s", key)

	uc.notify(ctx, entry)
	return entry, nil
}

// storageErr tags backend failures with ErrStorage. Invalid keys rejected by
// the backend keep their own classification.
func storageErr(op, key string, err error) error {
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
	return fmt.Errorf("%s %q: %w: %w", op, key, domain.ErrStorage, err)
}

// notify fans the entry out to every notifier and waits for all of them.
// Failures are logged only; the operation has already succeeded.
func (uc *Files) notify(ctx context.Context, entry domain.HistoryEntry) {
	if len(uc.notifiers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, target := range uc.notifiers {
		wg.Add(1)
		go func(t NotifyTarget) {
			defer wg.Done()

			if err := t.Notifier.Notify(ctx, entry); err != nil {
				uc.logger.Errorf("Failed to notify %s about %s %s: %v",
					t.Name, entry.Operation, entry.Filename, err)
			}
		}(target)
	}

	wg.Wait()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
