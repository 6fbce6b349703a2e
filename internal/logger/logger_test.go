package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestWithComponentWritesJSONFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithComponent("okx").WithFields(Fields{"currency": "BTC"}).Info("fetched")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "okx", rec["component"])
	require.Equal(t, "BTC", rec["currency"])
	require.Equal(t, "fetched", rec["message"])
	require.Equal(t, "info", rec["level"])
	require.Contains(t, rec, "timestamp")
}

func TestConfigure(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()

	require.NoError(t, l.Configure("debug", "text", "stderr", 0))
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	require.Error(t, l.Configure("loud", "json", "stdout", 0))
	require.Error(t, l.Configure("info", "xml", "stdout", 0))

	path := filepath.Join(t.TempDir(), "optionflow.log")
	require.NoError(t, l.Configure("warn", "json", path, 7))
	require.Equal(t, logrus.WarnLevel, l.GetLevel())
}

func TestConfigure_EnvLevelWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := New()
	require.NoError(t, l.Configure("debug", "json", "stdout", 0))
	require.Equal(t, logrus.ErrorLevel, l.GetLevel())
}
