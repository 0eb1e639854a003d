package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// maxAttempts is the total attempt budget for retry-enabled call classes.
	maxAttempts = 3

	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 2 * time.Second

	// metadataTimeout applies to feed posts and video start/finish/status calls.
	metadataTimeout = 30 * time.Second
	// binaryTimeout applies to photo uploads and video chunk transfers.
	binaryTimeout = 120 * time.Second
)

// retryProfile controls which outcomes of a call class are retried. The
// text/media asymmetry (timeouts retried for text posts only) is intentional
// and mirrors the platform clients this replaces.
type retryProfile struct {
	name          string
	retryEnabled  bool
	retryTimeouts bool
}

var (
	profileText  = retryProfile{name: "text", retryEnabled: true, retryTimeouts: true}
	profileMedia = retryProfile{name: "media", retryEnabled: true}
	// Video phase calls are never retried: any failed phase abandons the
	// whole upload session.
	profileUploadPhase = retryProfile{name: "upload-phase"}
)

var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// attemptCounter records how many HTTP attempts the most recent logical call
// spent. The pipeline is single-threaded, so one counter per client is enough.
type attemptCounter struct {
	attempts int
}

func (c *attemptCounter) reset() {
	c.attempts = 0
}

// newRetryClient builds a retryablehttp client for one call class. waitMin and
// waitMax bound the exponential backoff (1s then 2s with the defaults); there
// is no sleep after the final attempt.
func newRetryClient(profile retryProfile, timeout, waitMin, waitMax time.Duration, counter *attemptCounter, logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.HTTPClient.Timeout = timeout
	client.RetryWaitMin = waitMin
	client.RetryWaitMax = waitMax
	client.Backoff = retryablehttp.DefaultBackoff
	client.CheckRetry = checkRetryForProfile(profile, logger)
	client.ErrorHandler = exhaustionHandler(logger)

	if profile.retryEnabled {
		client.RetryMax = maxAttempts - 1
	} else {
		client.RetryMax = 0
	}

	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, retryNumber int) {
		counter.attempts = retryNumber + 1
	}

	return client
}

func checkRetryForProfile(profile retryProfile, logger log.Logger) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			if isTimeoutError(err) {
				logger.Debugf("CheckRetry (%s): timeout, retry=%v", profile.name, profile.retryEnabled && profile.retryTimeouts)
				return profile.retryEnabled && profile.retryTimeouts, nil
			}
			logger.Debugf("CheckRetry (%s): connection failure, retry=%v: %s", profile.name, profile.retryEnabled, err)
			return profile.retryEnabled, nil
		}

		if retryableStatusCodes[resp.StatusCode] {
			logger.Debugf("CheckRetry (%s): HTTP %d, retry=%v", profile.name, resp.StatusCode, profile.retryEnabled)
			return profile.retryEnabled, nil
		}

		return false, nil
	}
}

// exhaustionHandler shapes the error returned once the attempt budget is
// spent: it names the attempt count and the last observed outcome.
func exhaustionHandler(logger log.Logger) retryablehttp.ErrorHandler {
	return func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		if resp != nil {
			lastStatus := resp.Status
			if closeErr := resp.Body.Close(); closeErr != nil {
				logger.Debugf("Failed to close response body: %s", closeErr)
			}
			return nil, fmt.Errorf("request failed after %d attempts, last status: %s", numTries, lastStatus)
		}
		if err != nil {
			// Wrapping keeps the underlying network error classifiable.
			return nil, fmt.Errorf("request failed after %d attempts, last error: %w", numTries, err)
		}
		return nil, fmt.Errorf("request failed after %d attempts", numTries)
	}
}

// IsTimeoutError reports whether err stems from a request timeout, directly
// or wrapped by the transport layer.
func IsTimeoutError(err error) bool {
	return isTimeoutError(err)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
