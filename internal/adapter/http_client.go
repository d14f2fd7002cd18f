package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/farm-sync/internal/config"
	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/models"
)

type httpRemoteStore struct {
	client *resty.Client
	logger *logger.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPRemoteStore constructs an HTTP/REST implementation of [RemoteStore].
// It normalises and validates the base URL from adapterCfg.HTTPAddress and
// configures the underlying client with the resolved base URL and request
// timeout.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as
// a valid URL.
func NewHTTPRemoteStore(adapterCfg config.ClientAdapter, logger *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout)

	h := &httpRemoteStore{client: cli, logger: logger}
	h.SetToken(adapterCfg.Token)

	return h, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [RemoteStore]. It stores token (whitespace-trimmed) for
// use in the Authorization header of all subsequent requests.
func (h *httpRemoteStore) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [RemoteStore]. It returns the bearer token currently held
// by the adapter, or an empty string if none has been set.
func (h *httpRemoteStore) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// SubmitBatch implements [RemoteStore]. It POSTs the operations to
// POST /api/sync/batch and decodes the per-item results. A transport failure
// or non-2xx status is returned as a wrapped sentinel error; the caller must
// then treat every item of the batch as failed.
func (h *httpRemoteStore) SubmitBatch(ctx context.Context, ops []models.BatchOperation) ([]models.BatchItemResult, error) {
	var body models.BatchResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(h.Token()).
		SetBody(models.BatchRequest{Operations: ops, Length: len(ops)}).
		SetResult(&body).
		Post("/api/sync/batch")
	if err != nil {
		return nil, fmt.Errorf("%w: submit batch request: %w", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	if len(body.Results) != len(ops) {
		h.logger.Warn().
			Int("submitted", len(ops)).
			Int("returned", len(body.Results)).
			Msg("batch result count mismatch")
		return nil, fmt.Errorf("%w: %d results for %d operations", ErrBadResponse, len(body.Results), len(ops))
	}

	return body.Results, nil
}

// Ping implements [RemoteStore]. It GETs /api/health and reports reachability.
func (h *httpRemoteStore) Ping(ctx context.Context) error {
	resp, err := h.client.R().
		SetContext(ctx).
		Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: ping request: %w", ErrUnavailable, err)
	}

	return mapHTTPError(resp)
}
