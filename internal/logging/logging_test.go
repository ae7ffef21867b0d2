package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FansOutToEverySink(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var a, b bytes.Buffer
	logger := New(false, &a, &b)

	logger.Debug().Msg("hidden")
	logger.Info().Str("dataset", "abc").Msg("Dataset loaded")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"dataset":"abc"`)
	}
}

func TestNew_Verbose(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := New(true, &buf)
	logger.Debug().Msg("parse warning")

	assert.Contains(t, buf.String(), "parse warning")
}

func TestDir(t *testing.T) {
	t.Setenv("PICKING_LOG_DIR", "")
	t.Setenv("LOGS_FOLDER", "/var/log/picking")
	assert.Equal(t, "/var/log/picking", Dir())

	t.Setenv("PICKING_LOG_DIR", "/tmp/picking-logs")
	assert.Equal(t, "/tmp/picking-logs", Dir())
}

func TestUseDir_MovesFileSink(t *testing.T) {
	prevLogger, prevConsole, prevFile := log.Logger, console, fileWriter
	t.Cleanup(func() {
		log.Logger, console, fileWriter = prevLogger, prevConsole, prevFile
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var stderr bytes.Buffer
	console = &stderr
	fileWriter = rotating(t.TempDir())

	configured := filepath.Join(t.TempDir(), "configured")
	require.NoError(t, UseDir(configured))
	log.Info().Msg("after config")
	require.NoError(t, fileWriter.Close())

	assert.Equal(t, filepath.Join(configured, FileName), fileWriter.Filename)
	data, err := os.ReadFile(filepath.Join(configured, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "after config")
	assert.Contains(t, stderr.String(), "after config")
}

func TestUseDir_NoopBeforeInit(t *testing.T) {
	prev := fileWriter
	t.Cleanup(func() { fileWriter = prev })
	fileWriter = nil

	dir := filepath.Join(t.TempDir(), "unused")
	require.NoError(t, UseDir(dir))
	assert.NoDirExists(t, dir)
}

func TestEnsureWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	require.NoError(t, ensureWritable(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write-test"))
}
