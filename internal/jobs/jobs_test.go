package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) CheckReminders(ctx context.Context, _ time.Time) (*services.ReminderReport, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	return &services.ReminderReport{MedicationsSent: 1}, c.err
}

func TestStartRunsImmediately(t *testing.T) {
	checker := &countingChecker{}
	s, err := StartReminderScheduler("@every 1h", checker, time.UTC)
	require.NoError(t, err)
	s.Stop()

	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestStartRejectsBadSpec(t *testing.T) {
	_, err := StartReminderScheduler("every so often", &countingChecker{}, nil)
	assert.Error(t, err)
}

func TestRunRemindersReturnsReport(t *testing.T) {
	checker := &countingChecker{err: errors.New("db down")}
	report := RunReminders(checker)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.MedicationsSent)
}
