package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderRunner is the job the scheduler triggers.
type ReminderRunner interface {
	SendUpcomingPaymentReminders(ctx context.Context) (int, error)
}

// ReminderScheduler runs payment reminders on a cron spec. Circle status is never
// maintained here; it is derived on read.
type ReminderScheduler struct {
	cronEngine *cron.Cron
	reminders  ReminderRunner
	logger     *logrus.Entry
	spec       string
	jobTimeout time.Duration
}

func NewReminderScheduler(reminders ReminderRunner, logger *logrus.Entry, spec string) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // server's local time
		reminders:  reminders,
		logger:     logger.WithField("component", "scheduler"),
		spec:       spec,
		jobTimeout: 5 * time.Minute,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, s.runReminders); err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	s.logger.WithField("spec", s.spec).Info("Reminder scheduler started")
	return nil
}

func (s *ReminderScheduler) runReminders() {
	s.logger.Info("Cron job triggered for payment reminders")
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	sent, err := s.reminders.SendUpcomingPaymentReminders(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Payment reminder run failed")
		return
	}
	s.logger.WithField("sent", sent).Info("Payment reminder run finished")
}

// Stop waits for a running job to finish.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped")
}
