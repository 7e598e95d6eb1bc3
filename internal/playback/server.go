package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// Streamer serves a video file to the browser media element.
type Streamer interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

// FileStreamer answers single byte-range requests, which is all a <video>
// element issues while seeking.
type FileStreamer struct {
	logger *slog.Logger
}

func NewFileStreamer(logger *slog.Logger) *FileStreamer {
	return &FileStreamer{logger: logger}
}

func (s *FileStreamer) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	f, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat video: %w", err)
	}
	size := info.Size()

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType)

	br, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil:
		// Malformed ranges are ignored and the whole file is sent.
		br = nil
	}

	if br == nil {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, f)
		return err
	}

	if s.logger != nil {
		s.logger.Debug("serving video range", "path", filePath, "start", br.Start, "end", br.End)
	}
	h.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	h.Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek video: %w", err)
	}
	_, err = io.CopyN(w, f, br.Length())
	return err
}
