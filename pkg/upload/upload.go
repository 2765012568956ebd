// Package upload buffers multipart file parts so they can be inspected and forwarded more than once.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
)

// ErrTooLarge is returned when a part exceeds the configured size cap.
var ErrTooLarge = errors.New("upload exceeds size limit")

// AudioExtensions maps accepted audio container extensions to MIME types.
var AudioExtensions = map[string]string{
	".wav": "audio/wav",
}

// File is an uploaded part read fully into memory. Data must not be modified.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Read reads the part behind fh once. maxBytes <= 0 disables the cap.
func Read(fh *multipart.FileHeader, maxBytes int64) (*File, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, fh.Filename, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", fh.Filename, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, fh.Filename)
	}
	return &File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// IsAudio reports whether name carries an accepted audio extension.
func IsAudio(name string) bool {
	_, ok := AudioExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// AudioMIMEType returns the MIME type for an accepted audio filename.
func AudioMIMEType(name string) string {
	if ct, ok := AudioExtensions[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
