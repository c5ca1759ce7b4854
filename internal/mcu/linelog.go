package mcu

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"xrdisplay/internal/logging"
)

// maxLineBytes bounds buffered driver output; longer lines are logged in pieces.
const maxLineBytes = 4096

// lineLogger forwards driver output to the logger one line at a time.
type lineLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	stream string
	buf    []byte
}

func newLineLogger(logger *slog.Logger, stream string) *lineLogger {
	return &lineLogger{logger: logger, stream: stream}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.emit(w.buf[:idx])
		w.buf = w.buf[idx+1:]
	}
	for len(w.buf) >= maxLineBytes {
		w.emit(w.buf[:maxLineBytes])
		w.buf = w.buf[maxLineBytes:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

func (w *lineLogger) emit(raw []byte) {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return
	}
	w.logger.Debug("driver output", logging.String("stream", w.stream), logging.String("line", line))
}
