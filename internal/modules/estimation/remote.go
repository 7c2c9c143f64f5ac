package estimation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BackendRemote names the HTTP estimation backend
const BackendRemote = "remote"

// EstimatePath is the estimation endpoint relative to the service base URL
const EstimatePath = "/api/estimation/estimate"

// maxErrorBody caps how much of an error response is quoted back
const maxErrorBody = 4096

// RemoteEstimator delegates estimation to an estimation service over HTTP
type RemoteEstimator struct {
	baseURL string
	client  *http.Client
	codec   Codec
	log     zerolog.Logger
}

// NewRemoteEstimator creates a client for the service at baseURL
func NewRemoteEstimator(baseURL string, codec Codec, timeout time.Duration, log zerolog.Logger) *RemoteEstimator {
	if codec == nil {
		codec = JSON
	}
	return &RemoteEstimator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		codec:   codec,
		log:     log.With().Str("estimator", BackendRemote).Str("codec", codec.Name()).Logger(),
	}
}

// Name returns the backend name
func (r *RemoteEstimator) Name() string {
	return BackendRemote
}

// Estimate posts the problem to the service and decodes its result
func (r *RemoteEstimator) Estimate(ctx context.Context, problem Problem) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	body, err := r.codec.Marshal(problem)
	if err != nil {
		return nil, fmt.Errorf("failed to encode estimation problem: %w", err)
	}

	url := r.baseURL + EstimatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create estimation request: %w", err)
	}
	req.Header.Set("Content-Type", r.codec.ContentType())
	req.Header.Set("Accept", r.codec.ContentType())

	r.log.Debug().Str("url", url).Int("bytes", len(body)).Msg("Posting estimation problem")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("estimation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("estimation service returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read estimation response: %w", err)
	}

	codec := CodecForContentType(resp.Header.Get("Content-Type"))
	var result Result
	if err := codec.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode estimation response: %w", err)
	}
	if len(result.Values) != len(result.Probabilities) {
		return nil, fmt.Errorf("estimation response has %d values and %d probabilities",
			len(result.Values), len(result.Probabilities))
	}
	if result.Backend == "" {
		result.Backend = BackendRemote
	}

	return &result, nil
}
