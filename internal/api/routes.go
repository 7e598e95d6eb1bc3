package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/playback"
	"github.com/heimdex/heimdex-annotator/internal/review"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/videos/{id}/stream", streamHandler(cfg))
		r.Head("/videos/{id}/stream", streamHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/videos", listVideosHandler(cfg))
		r.Post("/videos", addVideoHandler(cfg))
		r.Post("/videos/import", importFolderHandler(cfg))
		r.Get("/videos/{id}", getVideoHandler(cfg))
		r.Delete("/videos/{id}", deleteVideoHandler(cfg))
		r.Post("/videos/{id}/probe", probeVideoHandler(cfg))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", openSessionHandler(cfg))
			r.Get("/", listSessionsHandler(cfg))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getSessionHandler(cfg))
				r.Delete("/", closeSessionHandler(cfg))
				r.Put("/surface", surfaceHandler(cfg))
				r.Put("/mode", modeHandler(cfg))
				r.Post("/pointer", pointerHandler(cfg))
				r.Post("/undo", undoHandler(cfg))
				r.Get("/segments", segmentsHandler(cfg))
				r.Get("/overlay.png", overlayHandler(cfg))
				r.Post("/playback", playbackHandler(cfg))
				r.Post("/fullscreen", fullscreenHandler(cfg))
				r.Get("/poster.png", posterHandler(cfg))
				r.Get("/annotations", listAnnotationsHandler(cfg))
				r.Post("/annotations", addAnnotationHandler(cfg))
				r.Patch("/annotations/{aid}", editAnnotationHandler(cfg))
				r.Delete("/annotations/{aid}", deleteAnnotationHandler(cfg))
				r.Post("/annotations/{aid}/select", selectAnnotationHandler(cfg))
			})
		})
	})

	return r
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, annotation.ErrValidation),
		errors.Is(err, annotation.ErrTimestampOutOfRange):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_FAILED")
	case errors.Is(err, annotation.ErrNotFound),
		errors.Is(err, review.ErrSessionNotFound),
		errors.Is(err, review.ErrNoPoster),
		errors.Is(err, catalog.ErrVideoNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, review.ErrInvalidSurface),
		errors.Is(err, review.ErrUnknownPhase),
		errors.Is(err, review.ErrUnknownAction),
		errors.Is(err, catalog.ErrNotVideo),
		errors.Is(err, catalog.ErrNotDirectory),
		errors.Is(err, fs.ErrNotExist):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, playback.ErrNotReady):
		WriteError(w, http.StatusConflict, err.Error(), "NOT_READY")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		resp := HealthResponse{
			Status:        "ok",
			Version:       config.Version,
			UptimeS:       uptime,
			DeviceID:      cfg.DeviceID,
			SchemaVersion: cfg.SchemaVersion,
		}
		if cfg.Doctor != nil {
			resp.Capabilities = cfg.Doctor.Peek()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		videos, _ := cfg.CatalogService.CountVideos(ctx)
		resp := StatusResponse{
			State:       "idle",
			VideosCount: videos,
		}

		if cfg.Sessions != nil {
			resp.SessionCount = cfg.Sessions.Count()
			if resp.SessionCount > 0 {
				resp.State = "reviewing"
			}
		}

		if cfg.Runner != nil {
			resp.ProbePaused = cfg.Runner.IsPaused()
			resp.Probed = cfg.Runner.Probed()
			if resp.ProbePaused && resp.State == "idle" {
				resp.State = "paused"
			}
		}

		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Peek(); caps != nil {
				resp.CanExtract = caps.CanExtractFrames()
				if !caps.ProbedAt.IsZero() {
					resp.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.CatalogService.ListVideos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddVideoRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		video, err := cfg.CatalogService.AddVideo(r.Context(), req.Path)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, VideoToResponse(video))
	}
}

func importFolderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportFolderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		videos, err := cfg.CatalogService.ImportFolder(r.Context(), req.Path)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		resp := VideosResponse{Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := cfg.CatalogService.GetVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video))
	}
}

func deleteVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.CatalogService.RemoveVideo(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func probeVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		video, err := cfg.CatalogService.ProbeVideo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(video))
	}
}

func streamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		video, err := cfg.CatalogService.GetVideo(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		if err := cfg.Streamer.ServeFile(w, r, video.Path); err != nil {
			cfg.Logger.Error("stream error", "error", err, "video_id", id)
		}
	}
}
