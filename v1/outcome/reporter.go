package outcome

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/imroc/req/v3"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/observability"
)

// Status is the processing result reported for a game event.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	pathStatus   = "/api/games/{id}/process-complete"
	pathImages   = "/api/games/{id}/images"
	pathMetadata = "/api/games/{id}/metadata"

	maxBodyInError = 512
)

// Images are the locations of a processed cover image.
type Images struct {
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Metadata is generated enrichment data for a game.
type Metadata struct {
	AverageRating     float64  `json:"averageRating"`
	TotalReviews      int      `json:"totalReviews"`
	DifficultyLevel   string   `json:"difficultyLevel"`
	EstimatedPlayTime string   `json:"estimatedPlayTime"`
	Tags              []string `json:"tags"`
	FunFact           string   `json:"funFact"`
}

// Reporter sends processing outcomes to the catalog backend over HTTP.
// Transport errors and 5xx answers are retried RetryCount times,
// RetryInterval apart; anything else fails immediately.
type Reporter struct {
	client   *req.Client
	logger   logger.Logger
	observer observability.Observer
}

type Option func(*Reporter)

func WithLogger(l logger.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

func WithObserver(o observability.Observer) Option {
	return func(r *Reporter) { r.observer = o }
}

// NewReporter validates cfg and builds the HTTP client.
func NewReporter(cfg Config, opts ...Option) (*Reporter, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("outcome config: %w", err)
	}

	r := &Reporter{}
	for _, opt := range opts {
		opt(r)
	}

	r.client = req.C().
		SetBaseURL(cfg.BackendURL).
		SetTimeout(cfg.Timeout).
		SetUserAgent("catalog-events").
		SetCommonRetryCount(cfg.RetryCount).
		SetCommonRetryFixedInterval(cfg.RetryInterval).
		SetCommonRetryCondition(func(resp *req.Response, err error) bool {
			return err != nil || resp.StatusCode >= 500
		}).
		SetCommonRetryHook(func(resp *req.Response, err error) {
			if r.logger == nil {
				return
			}
			fields := map[string]interface{}{"url": resp.Request.RawURL}
			if resp.Response != nil {
				fields["status"] = resp.StatusCode
			}
			r.logger.WarnWithContext(resp.Request.Context(), "Retrying backend request", err, fields)
		})
	return r, nil
}

// ReportStatus sets the processing status of a game.
func (r *Reporter) ReportStatus(ctx context.Context, gameID int64, status Status) error {
	return r.put(ctx, "report_status", pathStatus, gameID, map[string]Status{"status": status})
}

// ReportImages stores processed image locations on a game.
func (r *Reporter) ReportImages(ctx context.Context, gameID int64, images Images) error {
	return r.put(ctx, "report_images", pathImages, gameID, images)
}

// ReportMetadata stores enrichment metadata on a game.
func (r *Reporter) ReportMetadata(ctx context.Context, gameID int64, metadata Metadata) error {
	return r.put(ctx, "report_metadata", pathMetadata, gameID, metadata)
}

func (r *Reporter) put(ctx context.Context, operation, path string, gameID int64, body interface{}) error {
	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(gameID, 10)).
		SetBody(body).
		Put(path)

	var reportErr error
	switch {
	case err != nil:
		reportErr = &ReportError{GameID: gameID, Endpoint: path, Err: err}
	case !resp.IsSuccessState():
		text := resp.String()
		if len(text) > maxBodyInError {
			text = text[:maxBodyInError]
		}
		reportErr = &ReportError{GameID: gameID, Endpoint: path, StatusCode: resp.StatusCode, Body: text}
	}

	r.observe(operation, path, time.Since(start), reportErr)
	fields := map[string]interface{}{"game_id": gameID, "endpoint": path}
	if reportErr != nil {
		r.logWarn(ctx, "Backend rejected outcome report", reportErr, fields)
		return reportErr
	}
	r.logInfo(ctx, "Outcome reported", fields)
	return nil
}

func (r *Reporter) observe(operation, path string, d time.Duration, err error) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveOperation(observability.OperationContext{
		Component: "outcome",
		Operation: operation,
		Resource:  path,
		Duration:  d,
		Error:     err,
	})
}

func (r *Reporter) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (r *Reporter) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
