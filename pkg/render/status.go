package render

import (
	"errors"
	"fmt"

	"parkvision/pkg/client"
	"parkvision/pkg/models"
)

const (
	StatusIdle      = "Drop a parking lot image or click to upload"
	StatusAnalyzing = "Analyzing image..."

	unknownError = "Unknown error"
)

// UploadSummary is the status line after a successful upload.
func UploadSummary(stats models.OccupancyStats) string {
	if stats.Total == 0 {
		return "No vehicles detected - all spaces available"
	}
	return fmt.Sprintf("Found %d vehicles (%d%% spaces available)", stats.Total, Percentage(stats))
}

// FailureMessage is the status line after a failed upload.
func FailureMessage(err error) string {
	var appErr *client.ApplicationError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if msg == "" {
			msg = unknownError
		}
		return "Detection failed: " + msg
	}

	if err == nil {
		return "Upload failed: " + unknownError
	}
	return "Upload failed: " + err.Error()
}
