package api

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/draw"
	"github.com/heimdex/heimdex-annotator/internal/review"
)

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, s *review.Session)

// withSession resolves the {id} URL parameter to an open session.
func withSession(cfg ServerConfig, fn sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		fn(w, r, s)
	}
}

func openSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.VideoID == "" {
			WriteError(w, http.StatusBadRequest, "video_id is required", "BAD_REQUEST")
			return
		}

		s, err := cfg.Sessions.Open(r.Context(), req.VideoID, req.Width, req.Height)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, s.State())
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := cfg.Sessions.List()
		resp := SessionsResponse{Sessions: make([]review.State, len(sessions))}
		for i, s := range sessions {
			resp.Sessions[i] = s.State()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		WriteJSON(w, http.StatusOK, s.State())
	})
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func surfaceHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var req SurfaceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := s.Resize(req.Width, req.Height); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, s.State())
	})
}

func modeHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var req ModeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		mode, err := draw.ParseMode(req.Mode)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		changed := s.SetMode(mode)
		WriteJSON(w, http.StatusOK, ModeResponse{Mode: s.State().Mode, Changed: changed})
	})
}

func pointerHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var req PointerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := s.Pointer(req.Phase, req.InputEvent, req.Rect)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	})
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		undone := s.Undo()
		segments, _ := s.Segments()
		WriteJSON(w, http.StatusOK, UndoResponse{Undone: undone, Segments: len(segments)})
	})
}

func segmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		segments, current := s.Segments()
		if segments == nil {
			segments = []draw.Segment{}
		}
		WriteJSON(w, http.StatusOK, SegmentsResponse{Segments: segments, Current: current})
	})
}

func overlayHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		img := s.Overlay()
		if img == nil {
			WriteError(w, http.StatusNotFound, "overlay has no surface", "NOT_FOUND")
			return
		}
		writePNG(w, cfg, img)
	})
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var req PlaybackRequest
		if !decodeBody(w, r, &req) {
			return
		}
		snap, err := s.Playback(r.Context(), req.Action, req.Time)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	})
}

func fullscreenHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		on, err := s.ToggleFullscreen()
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, FullscreenResponse{Fullscreen: on})
	})
}

func posterHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		maxWidth := 0
		if v := r.URL.Query().Get("max_width"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "max_width must be a non-negative integer", "BAD_REQUEST")
				return
			}
			maxWidth = n
		}

		img, err := s.Poster(r.Context(), maxWidth)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writePNG(w, cfg, img)
	})
}

func listAnnotationsHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		list := s.Annotations()
		if list == nil {
			list = []annotation.Annotation{}
		}
		WriteJSON(w, http.StatusOK, AnnotationsResponse{Annotations: list})
	})
}

func addAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var req AnnotationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		a, err := s.AddFeedback(req.Title, req.Note, req.Media)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, a)
	})
}

func editAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		var patch annotation.Patch
		if !decodeBody(w, r, &patch) {
			return
		}
		a, err := s.EditAnnotation(chi.URLParam(r, "aid"), patch)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, a)
	})
}

func deleteAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		if err := s.DeleteAnnotation(chi.URLParam(r, "aid")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func selectAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *review.Session) {
		a, err := s.Select(r.Context(), chi.URLParam(r, "aid"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, a)
	})
}

// writePNG encodes before writing so an encoder failure can still become a
// JSON error.
func writePNG(w http.ResponseWriter, cfg ServerConfig, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		cfg.Logger.Error("png encode failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to encode image", "INTERNAL_ERROR")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
