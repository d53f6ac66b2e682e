package workers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/retro-catalog/catalog-events/v1/events"
	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/minio"
	"github.com/retro-catalog/catalog-events/v1/outcome"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
	"github.com/retro-catalog/catalog-events/v1/tracer"
)

// errUnusableImage marks a source image that will never become processable:
// a 4xx answer, an oversized body or an undecodable format.
var errUnusableImage = errors.New("unusable source image")

// ImageWorker handles the image_processing queue.
type ImageWorker struct {
	cfg      ImageConfig
	http     *req.Client
	store    minio.Client
	reporter outcome.OutcomeReporter
	logger   logger.Logger
	tracer   *tracer.Tracer
	now      func() time.Time
}

// NewImageWorker builds the worker. t may be nil.
func NewImageWorker(cfg ImageConfig, store minio.Client, reporter outcome.OutcomeReporter, log logger.Logger, t *tracer.Tracer) *ImageWorker {
	cfg = cfg.withDefaults()
	return &ImageWorker{
		cfg: cfg,
		http: req.C().
			SetTimeout(cfg.DownloadTimeout).
			SetUserAgent("catalog-events-image-processor").
			DisableAutoReadResponse(),
		store:    store,
		reporter: reporter,
		logger:   log,
		tracer:   t,
		now:      time.Now,
	}
}

func (w *ImageWorker) Register(c *rabbit.Consumer) {
	c.Handle(events.QueueImageProcessing, w.Handle)
}

// Handle downloads, resizes, stores and reports the images of one job. Jobs
// without an image and unusable images are acknowledged without a report.
func (w *ImageWorker) Handle(ctx context.Context, msg rabbit.Message) error {
	job, err := events.DecodeImageJob(msg.Body())
	if err != nil {
		return err
	}
	fields := map[string]interface{}{"game_id": job.GameID}

	if !job.HasImage() {
		w.logger.InfoWithContext(ctx, "No image to process, skipping", nil, fields)
		return nil
	}
	fields["image_url"] = *job.ImageURL

	src, err := w.download(ctx, strings.TrimSpace(*job.ImageURL))
	if errors.Is(err, errUnusableImage) {
		w.logger.WarnWithContext(ctx, "Skipping unusable image", err, fields)
		return nil
	}
	if err != nil {
		return rabbit.NewHandlerError(err)
	}

	images, err := w.process(ctx, job.GameID, src)
	if errors.Is(err, errUnusableImage) {
		w.logger.WarnWithContext(ctx, "Skipping unusable image", err, fields)
		return nil
	}
	if err != nil {
		return rabbit.NewHandlerError(err)
	}

	if err := w.reporter.ReportImages(ctx, job.GameID, images); err != nil {
		return reportFailed(ctx, w.logger, err, fields)
	}
	fields["main"] = images.ImageURL
	fields["thumbnail"] = images.ThumbnailURL
	w.logger.InfoWithContext(ctx, "Image processing complete", nil, fields)
	return nil
}

func (w *ImageWorker) download(ctx context.Context, url string) ([]byte, error) {
	ctx, end := w.span(ctx, "image.download", map[string]interface{}{"url.full": url})
	var err error
	defer func() { end(err) }()

	resp, err := w.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		err = fmt.Errorf("download %s: status %d", url, resp.StatusCode)
		return nil, err
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("%w: download %s: status %d", errUnusableImage, url, resp.StatusCode)
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, w.cfg.MaxBytes+1))
	if err != nil {
		err = fmt.Errorf("download %s: %w", url, err)
		return nil, err
	}
	if int64(len(data)) > w.cfg.MaxBytes {
		err = fmt.Errorf("%w: larger than %d bytes", errUnusableImage, w.cfg.MaxBytes)
		return nil, err
	}
	return data, nil
}

func (w *ImageWorker) process(ctx context.Context, gameID int64, data []byte) (outcome.Images, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return outcome.Images{}, fmt.Errorf("%w: decode: %v", errUnusableImage, err)
	}

	main := fit(img, w.cfg.MainWidth, w.cfg.MainHeight)
	thumb := fit(main, w.cfg.ThumbWidth, w.cfg.ThumbHeight)

	mainJPEG, err := encodeJPEG(main, w.cfg.MainQuality)
	if err != nil {
		return outcome.Images{}, fmt.Errorf("encode main image: %w", err)
	}
	thumbJPEG, err := encodeJPEG(thumb, w.cfg.ThumbQuality)
	if err != nil {
		return outcome.Images{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	ts := w.now().Unix()
	prefix := strings.Trim(w.cfg.Prefix, "/")
	mainKey := fmt.Sprintf("%s/%d_%d_main.jpg", prefix, gameID, ts)
	thumbKey := fmt.Sprintf("%s/%d_%d_thumb.jpg", prefix, gameID, ts)

	if err := w.upload(ctx, mainKey, mainJPEG); err != nil {
		return outcome.Images{}, err
	}
	if err := w.upload(ctx, thumbKey, thumbJPEG); err != nil {
		return outcome.Images{}, err
	}

	w.logger.DebugWithContext(ctx, "Image resized", nil, map[string]interface{}{
		"game_id":     gameID,
		"format":      format,
		"source_size": fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"main_size":   fmt.Sprintf("%dx%d", main.Bounds().Dx(), main.Bounds().Dy()),
		"thumb_size":  fmt.Sprintf("%dx%d", thumb.Bounds().Dx(), thumb.Bounds().Dy()),
	})

	return outcome.Images{ImageURL: "/" + mainKey, ThumbnailURL: "/" + thumbKey}, nil
}

func (w *ImageWorker) upload(ctx context.Context, key string, data []byte) error {
	ctx, end := w.span(ctx, "image.upload", map[string]interface{}{"object.key": key, "object.size": len(data)})
	_, err := w.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg")
	end(err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// span starts a child span when a tracer is configured. The returned func
// ends it, recording err.
func (w *ImageWorker) span(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, func(error)) {
	if w.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := w.tracer.StartSpan(ctx, name)
	w.tracer.SetAttributes(span, attrs)
	return ctx, func(err error) {
		if err != nil {
			w.tracer.RecordErrorOnSpan(span, err)
		}
		span.End()
	}
}
