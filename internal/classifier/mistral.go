package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/lmercier/modbot/internal/models"
)

const moderationPath = "/v1/moderations"

// MistralClassifier calls Mistral's moderation endpoint and validates the
// verdict against the fixed category set.
type MistralClassifier struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	backoff time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewMistralClassifier(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) *MistralClassifier {
	return &MistralClassifier{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		backoff: 250 * time.Millisecond,
		client:  &http.Client{},
		logger:  logger,
	}
}

type moderationRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type moderationResult struct {
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

type moderationResponse struct {
	Results []moderationResult `json:"results"`
}

// Classify sends text to the oracle. Transport failures and 5xx answers are
// retried once with a short backoff before surfacing ErrUnavailable; a
// deadline hit surfaces ErrTimeout without retrying.
func (c *MistralClassifier) Classify(ctx context.Context, text string) (models.CategoryVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body []byte
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(c.backoff)), func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = c.request(ctx, text)
		return attemptErr
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response after %s", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	verdict, err := parseVerdict(body)
	if err != nil {
		c.logger.Warn("oracle returned an unparseable payload",
			zap.Error(err),
			zap.Int("body_bytes", len(body)))
		return nil, err
	}

	return verdict, nil
}

func (c *MistralClassifier) request(ctx context.Context, text string) ([]byte, error) {
	data, err := json.Marshal(moderationRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+moderationPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		// Transport-level failures are worth one more try.
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read moderation response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.RetryableError(fmt.Errorf("oracle returned status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
}

// parseVerdict validates the oracle payload strictly: every fixed category
// must carry a boolean flag and a score in [0,1]. Unknown extra categories
// are ignored; any other deviation is ErrMalformedResponse.
func parseVerdict(body []byte) (models.CategoryVerdict, error) {
	var resp moderationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: empty results", ErrMalformedResponse)
	}

	result := resp.Results[0]
	verdict := make(models.CategoryVerdict, len(models.Categories))
	for _, category := range models.Categories {
		flagged, ok := result.Categories[string(category)]
		if !ok {
			return nil, fmt.Errorf("%w: missing category %q", ErrMalformedResponse, category)
		}
		score, ok := result.CategoryScores[string(category)]
		if !ok {
			return nil, fmt.Errorf("%w: missing score for %q", ErrMalformedResponse, category)
		}
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("%w: score %v for %q out of range", ErrMalformedResponse, score, category)
		}
		verdict[category] = models.CategoryResult{Flagged: flagged, Score: score}
	}

	return verdict, nil
}
