package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/draw"
	"github.com/heimdex/heimdex-annotator/internal/pipeline"
	"github.com/heimdex/heimdex-annotator/internal/review"
)

type HealthResponse struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	UptimeS       int64                  `json:"uptime_s"`
	DeviceID      string                 `json:"device_id"`
	SchemaVersion string                 `json:"schema_version,omitempty"`
	Capabilities  *pipeline.Capabilities `json:"capabilities,omitempty"`
}

type StatusResponse struct {
	State        string `json:"state"`
	VideosCount  int    `json:"videos_count"`
	SessionCount int    `json:"sessions_count"`
	ProbePaused  bool   `json:"probe_paused"`
	Probed       int64  `json:"probed"`
	CanExtract   bool   `json:"can_extract_frames"`
	LastProbeAt  string `json:"last_probe_at,omitempty"`
}

type AddVideoRequest struct {
	Path string `json:"path"`
}

type ImportFolderRequest struct {
	Path string `json:"path"`
}

type VideoResponse struct {
	ID         string  `json:"id"`
	Path       string  `json:"path"`
	Filename   string  `json:"filename"`
	Size       int64   `json:"size"`
	SizeHuman  string  `json:"size_human"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Codec      string  `json:"codec,omitempty"`
	Probed     bool    `json:"probed"`
	ProbeError string  `json:"probe_error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	Added      string  `json:"added"`
}

type VideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type OpenSessionRequest struct {
	VideoID string `json:"video_id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type SessionsResponse struct {
	Sessions []review.State `json:"sessions"`
}

type SurfaceRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type ModeResponse struct {
	Mode    draw.Mode `json:"mode"`
	Changed bool      `json:"changed"`
}

// PointerRequest carries one pointer or touch event with the overlay
// bounding box the client measured while handling it.
type PointerRequest struct {
	Phase string `json:"phase"`
	draw.InputEvent
	Rect draw.Rect `json:"rect"`
}

type UndoResponse struct {
	Undone   bool `json:"undone"`
	Segments int  `json:"segments"`
}

type SegmentsResponse struct {
	Segments []draw.Segment `json:"segments"`
	Current  *draw.Segment  `json:"current"`
}

type PlaybackRequest struct {
	Action string  `json:"action"`
	Time   float64 `json:"time"`
}

type FullscreenResponse struct {
	Fullscreen bool `json:"fullscreen"`
}

type AnnotationRequest struct {
	Title string  `json:"title"`
	Note  string  `json:"note"`
	Media *string `json:"media"`
}

type AnnotationsResponse struct {
	Annotations []annotation.Annotation `json:"annotations"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func VideoToResponse(v *catalog.Video) VideoResponse {
	return VideoResponse{
		ID:         v.ID,
		Path:       v.Path,
		Filename:   v.Filename,
		Size:       v.Size,
		SizeHuman:  humanize.Bytes(uint64(v.Size)),
		Duration:   v.Duration,
		Width:      v.Width,
		Height:     v.Height,
		Codec:      v.Codec,
		Probed:     v.Probed(),
		ProbeError: v.ProbeError,
		CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		Added:      humanize.Time(v.CreatedAt),
	}
}
