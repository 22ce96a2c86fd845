package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// UploadRequest describes a media upload.
type UploadRequest struct {
	File        io.Reader
	FileName    string
	ContentType string
	Title       string
	Caption     string
	Location    string
	Type        MediaType
	Tags        []string
}

// UploadMedia streams the file and its metadata as multipart form content.
func (c *Client) UploadMedia(ctx context.Context, up UploadRequest) (*Media, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, up))
	}()

	req := request{
		op:          opUploadMedia,
		method:      http.MethodPost,
		path:        "/media/upload",
		body:        pr,
		contentType: mw.FormDataContentType(),
	}

	var result Media
	if err := c.do(ctx, req, &result); err != nil {
		_ = pr.Close()
		return nil, err
	}
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeUploadForm(mw *multipart.Writer, up UploadRequest) error {
	tags := up.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	fields := []struct{ name, value string }{
		{"title", up.Title},
		{"caption", up.Caption},
		{"location", up.Location},
		{"type", string(up.Type)},
		{"tags", string(tagsJSON)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, quoteEscaper.Replace(up.FileName)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if up.File != nil {
		if _, err := io.Copy(part, up.File); err != nil {
			return fmt.Errorf("failed to write file part: %w", err)
		}
	}

	return mw.Close()
}

// SniffFile detects the content type of the file at path and the media type it maps to.
// The media type is empty when the content is neither an image nor a video.
func SniffFile(path string) (string, MediaType, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to detect file type: %w", err)
	}
	return mt.String(), MediaTypeFromMIME(mt.String()), nil
}

// MediaTypeFromMIME maps a content type to a media type.
func MediaTypeFromMIME(contentType string) MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaTypeVideo
	default:
		return ""
	}
}
