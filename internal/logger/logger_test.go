package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Run("sets debug level", func(t *testing.T) {
		SetLevel("debug")
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("sets info level", func(t *testing.T) {
		SetLevel("info")
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("sets warn level", func(t *testing.T) {
		SetLevel("warn")
		require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("sets error level", func(t *testing.T) {
		SetLevel("error")
		require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	})

	t.Run("defaults to info for unknown level", func(t *testing.T) {
		SetLevel("unknown")
		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	// Reset to debug for other tests.
	SetLevel("debug")
}

func TestConfigure(t *testing.T) {
	t.Run("applies level and json format", func(t *testing.T) {
		Configure("warn", "json")
		require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("keeps console output for other formats", func(t *testing.T) {
		Configure("error", "console")
		require.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	})

	SetLevel("debug")
}

func TestSetJSON_KeepsCaller(t *testing.T) {
	original := Log
	defer func() { Log = original }()

	var buf bytes.Buffer
	setJSON(&buf)
	Log.Info().Msg("json line")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "json line", line["message"])
	require.Contains(t, line, "time")
	require.Contains(t, line["caller"], "logger_test.go")
}

func TestLoggerInit(t *testing.T) {
	t.Run("can log with fields", func(t *testing.T) {
		Log.Info().
			Str("phone_hash", HashPhone("56911111111")).
			Int("count", 42).
			Msg("test with fields")
	})
}
