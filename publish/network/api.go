// Package network implements the outbound HTTP surface of the publish
// pipeline: a Graph-style platform API client with bounded, classified
// retries and the chunked video upload protocol.
package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the platform Graph API endpoint used when the config
// does not override it.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// API is the platform surface the publish pipeline consumes. Implementations
// must be safe for sequential reuse; concurrent publishes are not supported.
type API interface {
	PostFeed(message string) (PostResponse, error)
	UploadPhoto(message, imagePath string) (PostResponse, error)
	UploadVideo(message, videoPath string) (VideoUploadResponse, error)
}

// PostResponse is the outcome of a successful simple post.
type PostResponse struct {
	PostID   string
	Attempts int
}

// VideoUploadResponse is the outcome of a successful chunked video upload.
// ProcessingState is best-effort: "ready", "failed" or "unknown" when the
// post-finish status poll did not reach a terminal state.
type VideoUploadResponse struct {
	VideoID         string
	SessionID       string
	FileSize        int64
	ProcessingState string
}

// APIError is a non-2xx platform response with its payload error message
// unwrapped, when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Config holds the credentials and tuning knobs of the API client. Only
// PageID and AccessToken are mandatory; zero values elsewhere select
// production defaults.
type Config struct {
	BaseURL     string
	PageID      string
	AccessToken string

	// Backoff bounds for retry-enabled call classes.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Video processing status poll. StatusPollAttempts is the total number
	// of poll calls before the state is reported as unknown.
	StatusPollAttempts int
	StatusPollInterval time.Duration
}

type apiClient struct {
	baseURL     string
	pageID      string
	accessToken string
	logger      log.Logger

	statusPollAttempts int
	statusPollInterval time.Duration

	feedClient    *retryablehttp.Client
	feedAttempts  *attemptCounter
	photoClient   *retryablehttp.Client
	photoAttempts *attemptCounter
	videoClient   *retryablehttp.Client
	chunkClient   *retryablehttp.Client
	statusClient  *retryablehttp.Client
}

// NewAPI creates the production API client.
func NewAPI(cfg Config, logger log.Logger) API {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = defaultRetryWaitMin
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = defaultRetryWaitMax
	}
	if cfg.StatusPollAttempts == 0 {
		cfg.StatusPollAttempts = defaultStatusPollAttempts
	}
	if cfg.StatusPollInterval == 0 {
		cfg.StatusPollInterval = defaultStatusPollInterval
	}

	feedAttempts := &attemptCounter{}
	photoAttempts := &attemptCounter{}
	phaseAttempts := &attemptCounter{}

	return &apiClient{
		baseURL:            cfg.BaseURL,
		pageID:             cfg.PageID,
		accessToken:        cfg.AccessToken,
		logger:             logger,
		statusPollAttempts: cfg.StatusPollAttempts,
		statusPollInterval: cfg.StatusPollInterval,
		feedClient:         newRetryClient(profileText, metadataTimeout, cfg.RetryWaitMin, cfg.RetryWaitMax, feedAttempts, logger),
		feedAttempts:       feedAttempts,
		photoClient:        newRetryClient(profileMedia, binaryTimeout, cfg.RetryWaitMin, cfg.RetryWaitMax, photoAttempts, logger),
		photoAttempts:      photoAttempts,
		videoClient:        newRetryClient(profileUploadPhase, metadataTimeout, cfg.RetryWaitMin, cfg.RetryWaitMax, phaseAttempts, logger),
		chunkClient:        newRetryClient(profileUploadPhase, binaryTimeout, cfg.RetryWaitMin, cfg.RetryWaitMax, phaseAttempts, logger),
		statusClient:       newRetryClient(profileUploadPhase, metadataTimeout, cfg.RetryWaitMin, cfg.RetryWaitMax, phaseAttempts, logger),
	}
}

type feedPostResponse struct {
	ID string `json:"id"`
}

// PostFeed publishes a text-only post to the page feed.
func (c *apiClient) PostFeed(message string) (PostResponse, error) {
	c.feedAttempts.reset()

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", c.accessToken)

	req, err := retryablehttp.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s/feed", c.baseURL, c.pageID), []byte(form.Encode()))
	if err != nil {
		return PostResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.feedClient.Do(req)
	if err != nil {
		return PostResponse{Attempts: c.feedAttempts.attempts}, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return PostResponse{Attempts: c.feedAttempts.attempts}, unwrapError(resp)
	}

	var response feedPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return PostResponse{Attempts: c.feedAttempts.attempts}, fmt.Errorf("decode feed response: %w", err)
	}

	return PostResponse{PostID: response.ID, Attempts: c.feedAttempts.attempts}, nil
}

// UploadPhoto publishes an image with a caption via a multipart POST to the
// photos endpoint.
func (c *apiClient) UploadPhoto(message, imagePath string) (PostResponse, error) {
	c.photoAttempts.reset()

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return PostResponse{}, fmt.Errorf("read image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("message", message); err != nil {
		return PostResponse{}, err
	}
	if err := writer.WriteField("access_token", c.accessToken); err != nil {
		return PostResponse{}, err
	}
	part, err := writer.CreateFormFile("source", filepath.Base(imagePath))
	if err != nil {
		return PostResponse{}, err
	}
	if _, err := part.Write(imageData); err != nil {
		return PostResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return PostResponse{}, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s/photos", c.baseURL, c.pageID), body.Bytes())
	if err != nil {
		return PostResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.photoClient.Do(req)
	if err != nil {
		return PostResponse{Attempts: c.photoAttempts.attempts}, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return PostResponse{Attempts: c.photoAttempts.attempts}, unwrapError(resp)
	}

	var response feedPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return PostResponse{Attempts: c.photoAttempts.attempts}, fmt.Errorf("decode photo response: %w", err)
	}

	return PostResponse{PostID: response.ID, Attempts: c.photoAttempts.attempts}, nil
}

type startUploadResponse struct {
	VideoID         string `json:"video_id"`
	UploadSessionID string `json:"upload_session_id"`
	StartOffset     uint64 `json:"start_offset"`
}

func (c *apiClient) startVideoUpload(fileSize int64) (startUploadResponse, error) {
	form := url.Values{}
	form.Set("upload_phase", "start")
	form.Set("file_size", strconv.FormatInt(fileSize, 10))
	form.Set("access_token", c.accessToken)

	resp, err := c.postForm(c.videoClient, c.videosURL(), form)
	if err != nil {
		return startUploadResponse{}, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return startUploadResponse{}, unwrapError(resp)
	}

	var response startUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return startUploadResponse{}, fmt.Errorf("decode start response: %w", err)
	}
	return response, nil
}

type transferResponse struct {
	StartOffset uint64 `json:"start_offset"`
}

// transferVideoChunk sends one chunk tagged with its offset and returns the
// server-reported next offset. The server value is authoritative.
func (c *apiClient) transferVideoChunk(sessionID string, offset uint64, chunk []byte) (uint64, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"upload_phase":      "transfer",
		"upload_session_id": sessionID,
		"start_offset":      strconv.FormatUint(offset, 10),
		"access_token":      c.accessToken,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return 0, err
		}
	}
	part, err := writer.CreateFormFile("video_file_chunk", "chunk")
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(chunk); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.videosURL(), body.Bytes())
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.chunkClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, unwrapError(resp)
	}

	var response transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("decode transfer response: %w", err)
	}
	return response.StartOffset, nil
}

type finishResponse struct {
	Success bool `json:"success"`
}

// finishVideoUpload closes the session and attaches the post caption. A 200
// response with success=false is reported to the caller as not-ok.
func (c *apiClient) finishVideoUpload(sessionID, description string) (bool, error) {
	form := url.Values{}
	form.Set("upload_phase", "finish")
	form.Set("upload_session_id", sessionID)
	form.Set("description", description)
	form.Set("access_token", c.accessToken)

	resp, err := c.postForm(c.videoClient, c.videosURL(), form)
	if err != nil {
		return false, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, unwrapError(resp)
	}

	var response finishResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return false, fmt.Errorf("decode finish response: %w", err)
	}
	return response.Success, nil
}

type videoStatusResponse struct {
	Status string `json:"status"`
}

func (c *apiClient) videoStatus(videoID string) (string, error) {
	statusURL := fmt.Sprintf("%s/%s?fields=status&access_token=%s", c.baseURL, videoID, url.QueryEscape(c.accessToken))

	req, err := retryablehttp.NewRequest(http.MethodGet, statusURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.statusClient.Do(req)
	if err != nil {
		return "", err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", unwrapError(resp)
	}

	var response videoStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return response.Status, nil
}

func (c *apiClient) postForm(client *retryablehttp.Client, requestURL string, form url.Values) (*http.Response, error) {
	req, err := retryablehttp.NewRequest(http.MethodPost, requestURL, []byte(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return client.Do(req)
}

func (c *apiClient) videosURL() string {
	return fmt.Sprintf("%s/%s/videos", c.baseURL, c.pageID)
}

func (c *apiClient) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Debugf("Failed to close response body: %s", err)
	}
}

// unwrapError converts a non-2xx response into an APIError carrying the
// platform's error message when the payload has the Graph error shape.
func unwrapError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return apiErr
	}

	var errorPayload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &errorPayload); err == nil && errorPayload.Error.Message != "" {
		apiErr.Message = errorPayload.Error.Message
		return apiErr
	}

	apiErr.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, payload)
	return apiErr
}
