package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

// Scheduler drives the periodic deadline sweep and reminder dispatch.
type Scheduler struct {
	engine     *cron.Cron
	sweeper    *assessment.Sweeper
	dispatcher *assessment.Dispatcher
	conf       core.SweepConfig
	logger     core.Logger
}

func New(sweeper *assessment.Sweeper, dispatcher *assessment.Dispatcher, conf core.SweepConfig, logger core.Logger) *Scheduler {
	return &Scheduler{
		engine:     cron.New(cron.WithLocation(time.Local)),
		sweeper:    sweeper,
		dispatcher: dispatcher,
		conf:       conf,
		logger:     logger,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.engine.AddFunc(s.conf.Spec, s.sweep)
	if err != nil {
		return err
	}
	_, err = s.engine.AddFunc(s.conf.ReminderSpec, s.remind)
	if err != nil {
		return err
	}

	s.engine.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop waits for running jobs to complete.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stats, err := s.sweeper.SweepAll(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("deadline sweep: %v", err), err)
		return
	}
	if stats.Closed > 0 || stats.Failed > 0 {
		s.logger.Info(fmt.Sprintf("deadline sweep: swept=%d closed=%d notified=%d failed=%d",
			stats.Swept, stats.Closed, stats.NotifiedCount, stats.Failed))
	}
}

func (s *Scheduler) remind() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sent, err := s.dispatcher.ProcessDueReminders(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("processing due reminders: %v", err), err)
		return
	}
	if sent > 0 {
		s.logger.Info(fmt.Sprintf("sent %d deadline reminders", sent))
	}
}
