package panel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// maxRequestBytes bounds one protocol line.
const maxRequestBytes = 4 << 20

// JSONSink writes pushes as newline-delimited JSON. It is safe for
// concurrent use.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink creates a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Send implements Sink.
func (s *JSONSink) Send(p Push) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(p)
}

// Serve reads newline-delimited requests from r and hands them to the
// controller until r is exhausted or ctx is cancelled. Malformed lines are
// logged and reported to the panel, not fatal.
func Serve(ctx context.Context, c *Controller, r io.Reader, sink Sink, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read requests: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			var req Request
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				logger.Warn("malformed request", "error", err)
				if err := reply(sink, logger, ShowMessage(LevelError, fmt.Sprintf("malformed request: %v", err))); err != nil {
					return err
				}
				continue
			}
			logger.Debug("request", "command", req.Command)

			if err := c.Handle(ctx, req); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				logger.Error("handle request", "command", req.Command, "error", err)
				if err := reply(sink, logger, ShowMessage(LevelError, err.Error())); err != nil {
					return err
				}
			}
		}
	}
}

// reply sends p and reports a failed send, which means the host is gone.
func reply(sink Sink, logger *slog.Logger, p Push) error {
	if err := sink.Send(p); err != nil {
		logger.Warn("send to panel failed", "command", p.Command, "error", err)
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
