package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hytalede/statistics/internal/domain"
)

// Verdict is the log severity and message derived from a send outcome. It never influences
// scheduling, a rejected or failed send is simply retried on the next tick.
type Verdict struct {
	Level    slog.Level
	Message  string
	Accepted bool
}

// Log writes the verdict to the default logger at its level.
func (v Verdict) Log(ctx context.Context, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, v.Level, v.Message, attrs...)
}

// Classify maps a completed exchange to a verdict, attaching a hint for common failure modes.
func Classify(result SendResult, endpoint string) Verdict {
	if result.Accepted() {
		return Verdict{Level: slog.LevelInfo, Message: "Telemetry accepted (204 No Content)", Accepted: true}
	}

	var msg strings.Builder

	_, _ = fmt.Fprintf(&msg, "Telemetry rejected with HTTP %d (endpoint=%s)", result.StatusCode, endpoint)

	if strings.TrimSpace(result.ResponseBody) != "" {
		msg.WriteString(": ")
		msg.WriteString(result.ResponseBody)

		if result.Truncated {
			msg.WriteString("... (truncated)")
		}
	}

	level := slog.LevelWarn

	switch status := result.StatusCode; {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg.WriteString(" | Hint: check bearerToken (unauthorized/forbidden).")

		level = slog.LevelError
	case status == http.StatusBadRequest:
		msg.WriteString(" | Hint: check endpoint (/api/v1/) and vanityUrl format.")
	case status == http.StatusTooManyRequests:
		msg.WriteString(" | Hint: rate limited; consider increasing interval.")
	case status >= http.StatusInternalServerError:
		msg.WriteString(" | Hint: server error; try again later.")
	}

	return Verdict{Level: level, Message: msg.String()}
}

// ClassifyError maps a failed send to a verdict.
func ClassifyError(err error, endpoint string) Verdict {
	switch {
	case err == nil:
		return Verdict{Level: slog.LevelInfo, Message: "Telemetry sent"}
	case errors.Is(err, domain.ErrValidation):
		return Verdict{Level: slog.LevelError, Message: fmt.Sprintf("Telemetry payload invalid: %v", err)}
	case errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrNetwork):
		return Verdict{Level: slog.LevelWarn, Message: fmt.Sprintf("Statistics endpoint unreachable (%s): %v", endpoint, err)}
	case errors.Is(err, context.Canceled):
		return Verdict{Level: slog.LevelWarn, Message: "Statistics dispatch interrupted"}
	default:
		return Verdict{Level: slog.LevelError, Message: fmt.Sprintf("Unexpected statistics dispatch failure: %v", err)}
	}
}
