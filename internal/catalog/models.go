package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrNotVideo      = errors.New("not a supported video file")
	ErrNotDirectory  = errors.New("path is not a directory")
)

// Video is a file registered for review.
type Video struct {
	ID          string     `json:"id"`
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	Size        int64      `json:"size"`
	Mtime       time.Time  `json:"mtime"`
	Fingerprint string     `json:"fingerprint"`
	Duration    float64    `json:"duration"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Codec       string     `json:"codec,omitempty"`
	ProbedAt    *time.Time `json:"probed_at,omitempty"`
	ProbeError  string     `json:"probe_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Probed reports whether media metadata has been read successfully.
func (v *Video) Probed() bool {
	return v.ProbedAt != nil
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const (
	ConfigDeviceID  = "device_id"
	ConfigAuthToken = "auth_token"
)

var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}
