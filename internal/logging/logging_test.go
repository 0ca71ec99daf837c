package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerContinuesPastFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMultiHandler(failingHandler{}, NewJSONHandler(&buf, "info")))

	logger.Info("vital logged", "type", "Weight")

	assert.Contains(t, buf.String(), `"msg":"vital logged"`)
	assert.Contains(t, buf.String(), `"type":"Weight"`)
}

func TestDBHandlerPersistsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewDBHandler(db, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("upload failed", "user_id", "u-1", "action", "upload", "error", "disk full", "latency_ms", 12.6, "file", "a.pdf")
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	l := logs[0]
	assert.Equal(t, "ERROR", l.Level)
	assert.Equal(t, "upload failed", l.Message)
	assert.Equal(t, "req-1", l.RequestID)
	require.NotNil(t, l.UserID)
	assert.Equal(t, "u-1", *l.UserID)
	assert.Equal(t, "upload", l.Action)
	assert.Equal(t, "disk full", l.Error)
	assert.Equal(t, 13, l.LatencyMs)
	assert.JSONEq(t, `{"file":"a.pdf"}`, string(l.Extra))
}

func TestPurgeOlderThan(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.AddDate(0, 0, -40), Level: "ERROR", Extra: []byte("{}")}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now, Level: "ERROR", Extra: []byte("{}")}).Error)

	deleted, err := PurgeOlderThan(db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
