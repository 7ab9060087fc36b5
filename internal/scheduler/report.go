package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"synthpop/internal/analytics"
	"synthpop/internal/journal"
	"synthpop/internal/logging"
)

// Notifier delivers the report text to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ReportScheduler sends a daily summary of the journal on a cron schedule.
type ReportScheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	schedule string
	journal  journal.Recorder
	notifier Notifier
	now      func() time.Time
	log      logging.Logger
}

func NewReportScheduler(schedule string, rec journal.Recorder, n Notifier, log logging.Logger) *ReportScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReportScheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
		journal:  rec,
		notifier: n,
		now:      time.Now,
		log:      log,
	}
}

// Report builds the summary for the UTC day containing now and sends it.
func (s *ReportScheduler) Report(ctx context.Context) error {
	events, err := s.journal.Load()
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	stats := analytics.AnalyzeDay(events, s.now().UTC())
	if err := s.notifier.Notify(ctx, stats.Summary()); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.log.WithField("date", stats.Date).Info("daily report sent")
	return nil
}

func (s *ReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.log.WithField("schedule", s.schedule).Info("daily report triggered")
		if err := s.Report(s.ctx); err != nil {
			s.log.WithError(err).Error("daily report failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule report %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("report scheduler started")
	return nil
}

func (s *ReportScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("report scheduler stopped")
}

func (s *ReportScheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
