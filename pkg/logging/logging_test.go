package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_EmptyPathFallsBackToConsole(t *testing.T) {
	f, logger, err := FileLogger(logrus.WarnLevel, "")
	require.NoError(t, err)
	require.Nil(t, f)
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestFileLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	f, logger, err := FileLogger(logrus.InfoLevel, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	logger.WithField("entity_code", "1000001").Info("orgtimeline.test")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"entity_code":"1000001"`)
	require.Contains(t, string(raw), `"msg":"orgtimeline.test"`)
}
