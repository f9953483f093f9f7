// Package dispatch delivers telemetry payloads and classifies the outcome.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/hytalede/statistics/internal/config"
	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/internal/payload"
	"github.com/hytalede/statistics/pkg/httpio"
	"github.com/hytalede/statistics/pkg/log"
)

// MaxResponseBytes bounds how much of a response body is kept for logging.
const MaxResponseBytes = 4096

// SendResult is the outcome of a completed HTTP exchange, regardless of status.
type SendResult struct {
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	Truncated    bool   `json:"truncated"`
}

// Accepted reports whether the endpoint took the payload.
func (r SendResult) Accepted() bool {
	return r.StatusCode == http.StatusNoContent
}

type Dispatcher struct {
	client *http.Client
}

func New(client *http.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Send POSTs doc to the telemetry endpoint of conf. The whole exchange, including reading the
// bounded response body, must finish within conf.ReadTimeout(). Non 2xx responses are not errors,
// they are returned in the SendResult for classification.
func (d *Dispatcher) Send(ctx context.Context, conf config.Config, doc payload.Payload) (SendResult, error) {
	body, errEncode := json.Marshal(doc)
	if errEncode != nil {
		return SendResult{}, errors.Join(errEncode, domain.ErrEncodePayload)
	}

	slog.Debug("Sending telemetry", slog.String("endpoint", conf.TelemetryEndpoint()),
		slog.String("vanity_url", doc.VanityURL), slog.String("payload", string(body)))

	reqCtx, cancel := context.WithTimeout(ctx, conf.ReadTimeout())
	defer cancel()

	req, errReq := http.NewRequestWithContext(reqCtx, http.MethodPost, conf.TelemetryEndpoint(), bytes.NewReader(body))
	if errReq != nil {
		return SendResult{}, errors.Join(errReq, domain.ErrCreateRequest)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conf.BearerToken())

	resp, errResp := d.client.Do(req)
	if errResp != nil {
		return SendResult{}, transportError(errResp)
	}

	defer log.Closer(resp.Body)

	limited, errRead := httpio.ReadUTF8Limited(resp.Body, MaxResponseBytes)
	if errRead != nil {
		return SendResult{}, transportError(errRead)
	}

	return SendResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: limited.Text,
		Truncated:    limited.Truncated,
	}, nil
}

// transportError tags err as a timeout or a generic network failure. Cancellation by the
// caller is kept as is so it can be told apart from an unreachable endpoint.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
}
