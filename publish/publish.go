// Package publish implements the publish pipeline: it validates publish
// requests, performs the platform calls through the network layer and maps
// every outcome, success or failure, into a structured Result.
package publish

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/socialboost/go-publisher/asset"
	"github.com/socialboost/go-publisher/publish/network"
	"github.com/socialboost/go-publisher/tracking"
)

// Kind selects the publish operation for a Request.
type Kind string

// Publishable content kinds.
const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Request describes one publish operation. AssetPath is required for image
// and video kinds and ignored for text.
type Request struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	AssetPath string `json:"asset_path,omitempty"`
}

// Poster runs publish operations against one configured page. It is not safe
// for concurrent use: a publish cycle is expected to run to completion before
// the next one starts.
type Poster struct {
	config  Config
	logger  log.Logger
	api     network.API
	store   *tracking.Store
	tracker publishTracker
}

// NewPoster creates a poster for the given config. api may be nil to use the
// production API client; store may be nil to disable publish tracking;
// tracker may be nil to disable analytics.
func NewPoster(config Config, logger log.Logger, api network.API, store *tracking.Store, tracker analytics.Tracker) (*Poster, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if api == nil {
		api = network.NewAPI(network.Config{
			BaseURL:     config.APIBaseURL,
			PageID:      config.PageID,
			AccessToken: string(config.AccessToken),
		}, logger)
	}

	return &Poster{
		config:  config,
		logger:  logger,
		api:     api,
		store:   store,
		tracker: newPublishTracker(tracker, logger),
	}, nil
}

// Publish dispatches the request to the matching publish operation.
func (p *Poster) Publish(request Request) Result {
	switch request.Kind {
	case KindText:
		return p.PostText(request.Message)
	case KindImage:
		return p.PostImage(request.Message, request.AssetPath)
	case KindVideo:
		return p.PostVideo(request.Message, request.AssetPath)
	default:
		return failedResult(fmt.Sprintf("Unsupported publish kind: %s", request.Kind))
	}
}

// PostText publishes a text-only post to the page feed.
func (p *Poster) PostText(message string) Result {
	defer p.tracker.wait()

	if strings.TrimSpace(message) == "" {
		return p.failed(KindText, "Message cannot be empty")
	}

	p.logger.Infof("Posting text message: %s", preview(message))

	startTime := time.Now()
	resp, err := p.api.PostFeed(message)
	if err != nil {
		result := p.errorResult(KindText, err, "Request timed out")
		result.Attempts = resp.Attempts
		return result
	}

	p.tracker.logPostPublished(string(KindText), resp.Attempts, time.Since(startTime))
	p.logger.Donef("Post %s created", resp.PostID)

	return Result{
		Status:   StatusSuccess,
		Message:  "Post created successfully",
		PostID:   resp.PostID,
		Attempts: resp.Attempts,
	}
}

// PostImage publishes an image with a caption. The image file is validated
// before any network call.
func (p *Poster) PostImage(message, imagePath string) Result {
	defer p.tracker.wait()

	if strings.TrimSpace(message) == "" {
		return p.failed(KindImage, "Message cannot be empty")
	}
	if err := asset.ValidateImage(imagePath); err != nil {
		return p.failed(KindImage, err.Error())
	}

	p.logger.Infof("Posting image %s (%s): %s", imagePath, asset.MIMEType(imagePath), preview(message))

	startTime := time.Now()
	resp, err := p.api.UploadPhoto(message, imagePath)
	if err != nil {
		result := p.errorResult(KindImage, err, "Request timed out (image upload)")
		result.Attempts = resp.Attempts
		result.ImagePath = imagePath
		return result
	}

	p.markPosted(imagePath)
	p.tracker.logPostPublished(string(KindImage), resp.Attempts, time.Since(startTime))
	p.logger.Donef("Image post %s created", resp.PostID)

	return Result{
		Status:    StatusSuccess,
		Message:   "Image post created successfully",
		PostID:    resp.PostID,
		ImagePath: imagePath,
		Attempts:  resp.Attempts,
	}
}

// PostVideo publishes a video through the chunked upload protocol, with the
// message as the post caption. A success result may carry an unknown
// processing state; platform-side completion is never guessed.
func (p *Poster) PostVideo(message, videoPath string) Result {
	defer p.tracker.wait()

	if strings.TrimSpace(message) == "" {
		return p.failed(KindVideo, "Message cannot be empty")
	}
	if err := asset.ValidateVideo(videoPath); err != nil {
		return p.failed(KindVideo, err.Error())
	}

	p.logger.Infof("Posting video %s (%s): %s", videoPath, asset.MIMEType(videoPath), preview(message))

	startTime := time.Now()
	resp, err := p.api.UploadVideo(message, videoPath)
	if err != nil {
		result := p.errorResult(KindVideo, err, "Request timed out (video upload)")
		result.VideoPath = videoPath
		return result
	}

	p.markPosted(videoPath)
	p.tracker.logVideoUploaded(resp.FileSize, resp.ProcessingState, time.Since(startTime))
	p.logger.Donef("Video %s uploaded, processing state: %s", resp.VideoID, resp.ProcessingState)

	return Result{
		Status:          StatusSuccess,
		Message:         "Video upload initiated successfully",
		VideoID:         resp.VideoID,
		VideoPath:       videoPath,
		FileSize:        resp.FileSize,
		ProcessingState: resp.ProcessingState,
	}
}

func (p *Poster) failed(kind Kind, errorMessage string) Result {
	p.logger.Warnf("%s publish failed: %s", kind, errorMessage)
	p.tracker.logPublishFailed(string(kind), errorMessage)
	return failedResult(errorMessage)
}

// errorResult maps a network-layer error to a failed Result: platform errors
// keep their full text, including any phase context wrapped around the
// payload message, plus the status code; timeouts get the operation's
// canonical timeout message.
func (p *Poster) errorResult(kind Kind, err error, timeoutMessage string) Result {
	var apiErr *network.APIError
	if errors.As(err, &apiErr) {
		result := p.failed(kind, err.Error())
		result.StatusCode = apiErr.StatusCode
		return result
	}
	if network.IsTimeoutError(err) {
		return p.failed(kind, timeoutMessage)
	}
	return p.failed(kind, err.Error())
}

// markPosted records a successful asset publish in the tracking store.
// Tracking is best-effort and never affects the result.
func (p *Poster) markPosted(assetPath string) {
	if p.store == nil {
		return
	}
	p.store.MarkPosted(p.trackingKey(assetPath), time.Now())
}

// trackingKey relativizes the asset path against the project root so the
// tracking document stays portable across checkouts.
func (p *Poster) trackingKey(assetPath string) string {
	if p.config.ProjectRoot != "" {
		if rel, err := filepath.Rel(p.config.ProjectRoot, assetPath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(assetPath)
}

func preview(message string) string {
	const maxPreview = 50
	if len(message) <= maxPreview {
		return message
	}
	return message[:maxPreview] + "..."
}
