package publish

// Status is the terminal outcome of a publish operation.
type Status string

// Publish operation outcomes.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the structured outcome of a publish operation. Publish operations
// never return Go errors to their caller; every outcome, including validation
// failures, arrives as a Result.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// StatusCode is the HTTP status of a platform-reported failure, when
	// one was observed.
	StatusCode int `json:"status_code,omitempty"`

	PostID    string `json:"post_id,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	VideoPath string `json:"video_path,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`

	// Attempts is the number of HTTP attempts the transport spent on the
	// operation's main call.
	Attempts int `json:"attempts,omitempty"`

	// ProcessingState reports the platform-side video processing state
	// observed by the post-finish poll: "ready", "failed" or "unknown".
	// It never downgrades a successful upload.
	ProcessingState string `json:"processing_state,omitempty"`
}

// Succeeded reports whether the operation ended in success.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func failedResult(errorMessage string) Result {
	return Result{Status: StatusFailed, Error: errorMessage}
}
