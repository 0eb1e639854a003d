package publish

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/log"
)

// publishTracker emits analytics events for publish outcomes. Analytics are
// fire-and-forget and must never influence the publish result.
type publishTracker struct {
	tracker analytics.Tracker
	logger  log.Logger
}

func newPublishTracker(tracker analytics.Tracker, logger log.Logger) publishTracker {
	return publishTracker{tracker: tracker, logger: logger}
}

func (t publishTracker) logPostPublished(kind string, attempts int, duration time.Duration) {
	if t.tracker == nil {
		return
	}
	t.tracker.Enqueue("publisher_post_published", analytics.Properties{
		"kind":       kind,
		"attempts":   attempts,
		"duration_s": duration.Truncate(time.Second).Seconds(),
	})
}

func (t publishTracker) logVideoUploaded(fileSize int64, processingState string, duration time.Duration) {
	if t.tracker == nil {
		return
	}
	t.tracker.Enqueue("publisher_video_uploaded", analytics.Properties{
		"file_size_bytes":  fileSize,
		"processing_state": processingState,
		"duration_s":       duration.Truncate(time.Second).Seconds(),
	})
}

func (t publishTracker) logPublishFailed(kind string, reason string) {
	if t.tracker == nil {
		return
	}
	t.tracker.Enqueue("publisher_publish_failed", analytics.Properties{
		"kind":   kind,
		"reason": reason,
	})
}

func (t publishTracker) wait() {
	if t.tracker == nil {
		return
	}
	t.tracker.Wait()
}
