package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

// Close closes closer and logs a failure. nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Write writes data to w and logs a failure. It reports whether the write succeeded
// so streaming loops can stop on a gone client.
func Write(ctx context.Context, w io.Writer, data []byte) bool {
	if w == nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("Failed to write", slog.Any("error", err))
		return false
	}
	return true
}
