package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"minichat/internal/models"
)

// UploadError is an upload failure. The UI shows it as a blocking alert
// rather than inline form text.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SendMedia uploads body through the relay and sends the returned URL as a
// media-only message.
func (c *Chat) SendMedia(ctx context.Context, filename string, body io.Reader) (models.Message, error) {
	if c.backend.Uploads == nil {
		return models.Message{}, &UploadError{Filename: filename, Err: errors.New("uploads are not configured")}
	}
	url, err := c.backend.Uploads.Upload(ctx, c.chat.ID, filename, body)
	if err != nil {
		return models.Message{}, &UploadError{Filename: filename, Err: err}
	}
	return c.Send(ctx, "", url)
}
