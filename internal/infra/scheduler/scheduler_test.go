package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) SendUpcomingPaymentReminders(context.Context) (int, error) {
	r.calls.Add(1)
	return 3, r.err
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestReminderScheduler_RejectsBadSpec(t *testing.T) {
	s := NewReminderScheduler(&countingRunner{}, quietLogger(), "not a cron spec")
	assert.Error(t, s.Start())
}

func TestReminderScheduler_StartStop(t *testing.T) {
	s := NewReminderScheduler(&countingRunner{}, quietLogger(), "0 9 * * *")
	require.NoError(t, s.Start())
	assert.Len(t, s.cronEngine.Entries(), 1)
	s.Stop()
}

func TestReminderScheduler_RunSurvivesErrors(t *testing.T) {
	runner := &countingRunner{err: errors.New("db down")}
	s := NewReminderScheduler(runner, quietLogger(), "@daily")
	s.runReminders()
	s.runReminders()
	assert.Equal(t, int32(2), runner.calls.Load())
}
