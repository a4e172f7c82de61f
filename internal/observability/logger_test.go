package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(buf *bytes.Buffer) Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(buf)
	return &jsonLogger{entry: logrus.NewEntry(log)}
}

func TestLoggerFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(&buf)

	logger.WithError(errors.New("boom")).WithField("request_id", "req-1").Error("purchase failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "purchase failed", line["msg"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "error", line["level"])
}

func TestLoggerChainsDoNotShareFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedLogger(&buf)

	scoped := logger.WithField("user_id", "u1")
	logger.Info("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	_, leaked := line["user_id"]
	assert.False(t, leaked, "derived entries must not mutate the parent")

	buf.Reset()
	scoped.Info("scoped")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "u1", line["user_id"])
}
