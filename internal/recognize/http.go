package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/resilience"
)

// ErrNotConfigured is returned when no recognition endpoint is set.
var ErrNotConfigured = errors.New("recognize: endpoint not configured")

const maxResponseBytes = 1 << 20

// HTTPRecognizer posts images to an external text recognition service that
// answers with {"lines": ["...", ...]}.
type HTTPRecognizer struct {
	Client   resilience.HTTPClient
	Endpoint string
	Metrics  *obs.DomainMetrics
	Logger   *zerolog.Logger
}

type linesResponse struct {
	Lines []string `json:"lines"`
}

// Recognize implements Recognizer. Transport and decoding failures are
// logged and delivered as an empty Candidate.
func (h *HTTPRecognizer) Recognize(ctx context.Context, image []byte, deliver func(Candidate)) {
	deliver = once(deliver)
	go func() {
		lines, err := h.Lines(ctx, image)
		if err != nil {
			h.Metrics.Recognition(obs.RecognitionFailed)
			obs.LoggerOrNop(h.Logger).Warn().Err(err).Int("image_bytes", len(image)).Msg("recognition_failed")
			deliver(Candidate{})
			return
		}
		deliver(ExtractCandidate(lines))
	}()
}

// Lines sends image to the endpoint and returns the recognized text lines.
func (h *HTTPRecognizer) Lines(ctx context.Context, image []byte) ([]string, error) {
	if strings.TrimSpace(h.Endpoint) == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("recognize: build request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognize: unexpected status %s", resp.Status)
	}
	var body linesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("recognize: decode response: %w", err)
	}
	return body.Lines, nil
}
