package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file written inside the log directory.
const FileName = "picking-dash.log"

// Init initializes the global logger with dual sinks: os.Stderr and a rotating file.
// Stdout is never written to, so the MCP stdio transport stays clean.
func Init(verbose bool) {
	// Init runs before config.Load, so LOGS_FOLDER may still live in the binary-relative .env.
	exePath, err := os.Executable()
	if err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	logDir := Dir()
	if err := ensureWritable(logDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	console = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}
	isVerbose = verbose
	fileWriter = rotating(logDir)
	log.Logger = New(verbose, console, fileWriter)
}

// Sinks installed by Init, kept so UseDir can move the file sink.
var (
	console    io.Writer
	fileWriter *lumberjack.Logger
	isVerbose  bool
)

func rotating(dir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}
}

// UseDir moves the rotating log file to dir, typically the configured log_dir, once the
// configuration is known. It is a no-op before Init or when dir is already in use.
func UseDir(dir string) error {
	if fileWriter == nil || dir == "" || filepath.Clean(dir) == filepath.Dir(fileWriter.Filename) {
		return nil
	}
	if err := ensureWritable(dir); err != nil {
		return err
	}
	old := fileWriter
	fileWriter = rotating(dir)
	log.Logger = New(isVerbose, console, fileWriter)
	return old.Close()
}

// New builds a logger fanning out to every sink at the level implied by verbose.
func New(verbose bool, sinks ...io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		With().
		Timestamp().
		Logger()
}

// Dir resolves the log directory used before the configuration is loaded: PICKING_LOG_DIR, then
// LOGS_FOLDER, then logs/ beside the binary.
func Dir() string {
	for _, key := range []string{"PICKING_LOG_DIR", "LOGS_FOLDER"} {
		if dir := os.Getenv(key); dir != "" {
			return dir
		}
	}
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "logs")
	}
	return "logs"
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("log directory %q is not writable: %w", dir, err)
	}
	return os.Remove(testFile)
}
