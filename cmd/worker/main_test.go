package main

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/handlers/business"
)

func quietLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetOutput(io.Discard)
	return log, hook
}

func TestHandleAlertLogsAtErrorLevel(t *testing.T) {
	log, hook := quietLogger()
	body, err := json.Marshal(business.Alert{
		Severity:   "critical",
		Kind:       "closure_missing",
		PeriodDate: "2025-03-01",
		PeriodType: "1-15",
		Status:     "missing",
		Message:    "period 2025-03-01 was not closed",
		RaisedAt:   time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, handleAlert(log)(body))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "2025-03-01", hook.LastEntry().Data["period_date"])
}

func TestHandleEventWarnsOnFailures(t *testing.T) {
	log, hook := quietLogger()
	body, err := json.Marshal(business.ClosureEvent{
		Type:         "period_closure.completed",
		PeriodDate:   "2025-03-01",
		ModelsFailed: 1,
		FailedModels: []string{"m2"},
	})
	require.NoError(t, err)

	require.NoError(t, handleEvent(log)(body))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestMalformedMessageIsDroppedAfterRetries(t *testing.T) {
	log, _ := quietLogger()
	handler := handleAlert(log)
	msg := []byte("{not json")

	for i := 1; i < maxErrorCount; i++ {
		assert.Error(t, handler(msg), "attempt %d should requeue", i)
	}
	assert.NoError(t, handler(msg))
	assert.Error(t, handler(msg), "counter restarts after a drop")
}
