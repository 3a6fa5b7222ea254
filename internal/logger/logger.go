package logger

import (
	"context"
	"log"
	"os"

	"auditeval/internal/correlation"
)

var Log *log.Logger

func Init(logFilePath string) error {
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}

	Log = log.New(file, "", log.LstdFlags)
	Log.Println("Logger initialized.")
	return nil
}

// InitDiscardForTest points the logger at a no-op writer so tests do not
// create log files.
func InitDiscardForTest() {
	Log = log.New(discard{}, "", 0)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Printf logs with the request's correlation id prefixed. Every log line
// inside one logical request goes through here.
func Printf(ctx context.Context, format string, args ...any) {
	if Log == nil {
		return
	}
	if cid := correlation.FromContext(ctx); cid != "" {
		Log.Printf("[cid=%s] "+format, append([]any{cid}, args...)...)
		return
	}
	Log.Printf(format, args...)
}
