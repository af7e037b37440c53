package log

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// NewLogger creates a *slog.Logger that writes to w through a
// RedactingHandler.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(NewRedactingHandler(handler))
}

// Log file rotation defaults.
const (
	// DefaultMaxLogSizeMB is the size at which the log file is rotated.
	DefaultMaxLogSizeMB = 20
	// DefaultMaxLogBackups is the number of rotated files kept.
	DefaultMaxLogBackups = 3
	// DefaultMaxLogAgeDays is how long rotated files are kept.
	DefaultMaxLogAgeDays = 28
)

// NewFileWriter returns a writer that appends to path and rotates the file
// when it grows past DefaultMaxLogSizeMB. The caller should Close it.
func NewFileWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxLogSizeMB,
		MaxBackups: DefaultMaxLogBackups,
		MaxAge:     DefaultMaxLogAgeDays,
		Compress:   true,
	}
}
