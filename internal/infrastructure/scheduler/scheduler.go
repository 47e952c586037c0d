package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// ErrorHandler receives failures from scheduled jobs.
type ErrorHandler func(spec string, err error)

type Scheduler struct {
	cron    *cron.Cron
	onError ErrorHandler
}

// New creates a scheduler using 6-field (seconds-first) cron specs.
func New(onError ErrorHandler) *Scheduler {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		onError: onError,
	}
}

func (s *Scheduler) AddJob(spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			s.onError(spec, err)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
