// Package uploader submits user-chosen images to the detector and reflects
// the outcome on the display.
package uploader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"parkvision/pkg/display"
	"parkvision/pkg/log"
	"parkvision/pkg/models"
	"parkvision/pkg/render"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	imagePrefix = "image/"
	genericType = "application/octet-stream"
	sniffLen    = 3072
)

// Detector is the part of the detector client the uploader needs.
type Detector interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*models.UploadResponse, error)
}

// File is a user-selected or dropped file. Size is informational.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result is what the display ended up showing after an upload.
type Result struct {
	ID     string
	Stats  models.OccupancyStats
	Status string
}

// Uploader runs the upload flow. Uploads are never retried.
type Uploader struct {
	detector Detector
	display  *display.Display
}

// New creates an uploader.
func New(detector Detector, disp *display.Display) *Uploader {
	return &Uploader{
		detector: detector,
		display:  disp,
	}
}

// Select uploads a file chosen with the file picker. Any file is accepted.
func (u *Uploader) Select(ctx context.Context, file File) (*Result, error) {
	if file.Body == nil {
		return nil, ErrNoFile
	}
	return u.upload(ctx, file, "select")
}

// Drop uploads a dragged file if its media type is image/*. When the
// declared type is missing or generic it is sniffed from the content.
func (u *Uploader) Drop(ctx context.Context, file File) (*Result, error) {
	if file.Body == nil {
		return nil, ErrNoFile
	}

	mediaType, body, err := declaredType(file)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mediaType, imagePrefix) {
		log.Debug().
			Str("file", file.Name).
			Str("content_type", mediaType).
			Msg("Ignoring dropped non-image file")
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}

	file.ContentType = mediaType
	file.Body = body
	return u.upload(ctx, file, "drop")
}

func (u *Uploader) upload(ctx context.Context, file File, via string) (*Result, error) {
	id := uuid.NewString()
	started := time.Now()

	log.Info().
		Str("upload_id", id).
		Str("via", via).
		Str("file", file.Name).
		Str("size", humanize.Bytes(uint64(max(file.Size, 0)))).
		Msg("Uploading image")

	u.display.SetStatus(render.StatusAnalyzing)

	resp, err := u.detector.Upload(ctx, file.Name, file.Body)
	if err != nil {
		status := render.FailureMessage(err)
		u.display.Fail(status)

		log.Error().
			Err(err).
			Str("upload_id", id).
			Dur("elapsed", time.Since(started)).
			Msg("Upload failed")
		return &Result{ID: id, Status: status}, err
	}

	stats := resp.Stats()
	status := render.UploadSummary(stats)
	u.display.ShowWithStatus(stats, display.SourceUpload, status)

	log.Info().
		Str("upload_id", id).
		Int("empty", stats.Empty).
		Int("occupied", stats.Occupied).
		Int("total", stats.Total).
		Dur("elapsed", time.Since(started)).
		Msg("Upload analyzed")

	return &Result{ID: id, Stats: stats, Status: status}, nil
}

// declaredType returns the media type to judge the file by, plus a reader
// that still yields the whole content.
func declaredType(file File) (string, io.Reader, error) {
	declared := strings.ToLower(strings.TrimSpace(file.ContentType))
	if idx := strings.IndexByte(declared, ';'); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if declared != "" && declared != genericType {
		return declared, file.Body, nil
	}

	buffered := bufio.NewReaderSize(file.Body, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, fmt.Errorf("sniff content type: %w", err)
	}

	detected := mimetype.Detect(head)
	return detected.String(), buffered, nil
}
