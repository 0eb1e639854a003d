package network

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/docker/go-units"
)

const (
	// chunkSize is the fixed transfer chunk size of the upload protocol.
	chunkSize = 4 * 1024 * 1024

	// maxStalledTransfers bounds consecutive transfer calls whose
	// server-reported offset fails to advance. The platform never returns
	// a non-advancing offset in healthy operation, so hitting the cap is a
	// protocol violation, not a transient failure.
	maxStalledTransfers = 3

	defaultStatusPollAttempts = 10
	defaultStatusPollInterval = 5 * time.Second
)

// ErrProtocolViolation marks a server response that breaks the upload
// protocol invariants, as opposed to an ordinary transport failure.
var ErrProtocolViolation = errors.New("upload protocol violation")

type uploadPhase string

const (
	phaseInit         uploadPhase = "init"
	phaseStarted      uploadPhase = "started"
	phaseTransferring uploadPhase = "transferring"
	phaseFinishing    uploadPhase = "finishing"
	phaseComplete     uploadPhase = "complete"
	phaseFailed       uploadPhase = "failed"
)

// uploadSession tracks one chunked upload. A session is never reused across
// files and is abandoned wholesale on any phase failure; a later attempt
// starts over from offset 0 with a fresh session.
type uploadSession struct {
	videoID       string
	sessionID     string
	totalSize     uint64
	currentOffset uint64
	phase         uploadPhase
}

func (s *uploadSession) fail() {
	s.phase = phaseFailed
}

// UploadVideo runs the three-phase chunked upload for the video at videoPath
// with message as the post caption, then polls the processing status
// best-effort. The returned ProcessingState is "unknown" when polling did not
// observe a terminal state; the upload itself is still a success.
func (c *apiClient) UploadVideo(message, videoPath string) (VideoUploadResponse, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return VideoUploadResponse{}, fmt.Errorf("stat video: %w", err)
	}
	fileSize := info.Size()

	c.logger.Infof("Uploading video %s (%s)", videoPath, units.HumanSizeWithPrecision(float64(fileSize), 3))

	session := &uploadSession{totalSize: uint64(fileSize), phase: phaseInit}

	startResp, err := c.startVideoUpload(fileSize)
	if err != nil {
		session.fail()
		return VideoUploadResponse{}, fmt.Errorf("Start upload failed: %w", err)
	}
	session.videoID = startResp.VideoID
	session.sessionID = startResp.UploadSessionID
	session.currentOffset = startResp.StartOffset
	session.phase = phaseStarted

	c.logger.Debugf("Upload session %s started for video %s at offset %d", session.sessionID, session.videoID, session.currentOffset)

	if err := c.transferChunks(session, videoPath); err != nil {
		session.fail()
		return VideoUploadResponse{}, err
	}

	session.phase = phaseFinishing
	ok, err := c.finishVideoUpload(session.sessionID, message)
	if err != nil {
		session.fail()
		return VideoUploadResponse{}, fmt.Errorf("Finish upload failed: %w", err)
	}
	if !ok {
		session.fail()
		return VideoUploadResponse{}, fmt.Errorf("%w: finish reported success=false", ErrProtocolViolation)
	}
	session.phase = phaseComplete

	c.logger.Donef("Video %s uploaded (%s)", session.videoID, units.HumanSizeWithPrecision(float64(fileSize), 3))

	processingState := c.pollProcessingState(session.videoID)

	return VideoUploadResponse{
		VideoID:         session.videoID,
		SessionID:       session.sessionID,
		FileSize:        fileSize,
		ProcessingState: processingState,
	}, nil
}

// transferChunks drives the transfer loop until the server-reported offset
// reaches the file size. The chunk for each call is read at the current
// offset, so a server that re-requests a range is honored.
func (c *apiClient) transferChunks(session *uploadSession, videoPath string) error {
	file, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logger.Warnf("Failed to close video file: %s", err)
		}
	}()

	session.phase = phaseTransferring

	stalled := 0
	for session.currentOffset < session.totalSize {
		chunk, err := io.ReadAll(io.NewSectionReader(file, int64(session.currentOffset), chunkSize))
		if err != nil {
			return fmt.Errorf("read chunk at offset %d: %w", session.currentOffset, err)
		}

		c.logger.Debugf("Transferring %d bytes at offset %d/%d", len(chunk), session.currentOffset, session.totalSize)

		nextOffset, err := c.transferVideoChunk(session.sessionID, session.currentOffset, chunk)
		if err != nil {
			return fmt.Errorf("Transfer failed: %w", err)
		}

		if nextOffset <= session.currentOffset {
			stalled++
			c.logger.Warnf("Server offset did not advance (reported %d at offset %d, stall %d/%d)", nextOffset, session.currentOffset, stalled, maxStalledTransfers)
			if stalled >= maxStalledTransfers {
				return fmt.Errorf("%w: offset stalled at %d after %d transfers", ErrProtocolViolation, session.currentOffset, stalled)
			}
			continue
		}

		stalled = 0
		session.currentOffset = nextOffset
	}

	return nil
}

// pollProcessingState polls the video status endpoint after a successful
// finish. Polling is best-effort: failures and exhaustion are logged only and
// leave the state unknown, they never affect the upload outcome.
func (c *apiClient) pollProcessingState(videoID string) string {
	state := "unknown"

	err := retry.Times(uint(c.statusPollAttempts - 1)).Wait(c.statusPollInterval).Try(func(attempt uint) error {
		status, err := c.videoStatus(videoID)
		if err != nil {
			c.logger.Debugf("Status poll attempt %d failed: %s", attempt+1, err)
			return err
		}
		c.logger.Debugf("Status poll attempt %d: video %s is %s", attempt+1, videoID, status)
		if status == "ready" || status == "failed" {
			state = status
			return nil
		}
		return fmt.Errorf("video %s still processing (%s)", videoID, status)
	})
	if err != nil {
		c.logger.Warnf("Video %s processing state unknown after %d poll attempts: %s", videoID, c.statusPollAttempts, err)
	}

	return state
}
