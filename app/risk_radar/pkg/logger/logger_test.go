package logger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter_Format(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "cache miss",
		Data:    logrus.Fields{"month": "2026-03", "age": 8},
	}

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-04 05:06:07] [WARN] [] cache miss age=8 month=2026-03\n", string(out))
}

func TestInitLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "radar.log")
	require.NoError(t, InitLogger("debug", path))

	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	Log.Info("hello")
	assert.FileExists(t, path)
}

func TestInitLogger_BadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, InitLogger("loud", ""))
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
