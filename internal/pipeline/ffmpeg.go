package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoVideoStream    = errors.New("no video stream")
	ErrToolsUnavailable = errors.New("ffmpeg tools unavailable")
)

// FFmpeg is the media tooling the catalog and review sessions depend on.
type FFmpeg interface {
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)
	// ExtractFrame decodes the frame shown at offset seconds.
	ExtractFrame(ctx context.Context, filePath string, offset float64) (image.Image, error)
}

type ProbeResult struct {
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Codec       string  `json:"codec"`
	Bitrate     int64   `json:"bitrate"`
	FrameRate   float64 `json:"frame_rate"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	AudioSample int     `json:"audio_sample,omitempty"`
}

type Config struct {
	FFmpegPath   string // empty = look up on PATH
	FFprobePath  string
	ProbeTimeout time.Duration
	FrameTimeout time.Duration
	Logger       *slog.Logger
}

func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		ProbeTimeout: 30 * time.Second,
		FrameTimeout: 15 * time.Second,
		Logger:       logger,
	}
}

// ExecFFmpeg shells out to the ffmpeg and ffprobe binaries.
type ExecFFmpeg struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

func NewExecFFmpeg(cfg Config) (*ExecFFmpeg, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	cfg.Logger.Info("media tools resolved", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	return &ExecFFmpeg{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

func (f *ExecFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ProbeTimeout)
	defer cancel()

	var out bytes.Buffer
	res := run(ctx, f.cfg.Logger, &out, f.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err := res.Err("ffprobe"); err != nil {
		return nil, err
	}
	return parseProbe(out.Bytes())
}

func (f *ExecFFmpeg) ExtractFrame(ctx context.Context, filePath string, offset float64) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.FrameTimeout)
	defer cancel()

	var out bytes.Buffer
	res := run(ctx, f.cfg.Logger, &out, f.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", filePath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err := res.Err("ffmpeg"); err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("no frame at %.3fs", offset)
	}
	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		SampleRate   string `json:"sample_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// parseProbe reads `ffprobe -print_format json` output. Numeric fields come
// back as strings.
func parseProbe(data []byte) (*ProbeResult, error) {
	var po probeOutput
	if err := json.Unmarshal(data, &po); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	r := &ProbeResult{}
	r.Duration, _ = strconv.ParseFloat(po.Format.Duration, 64)
	r.Bitrate, _ = strconv.ParseInt(po.Format.BitRate, 10, 64)

	hasVideo := false
	for _, s := range po.Streams {
		switch s.CodecType {
		case "video":
			if hasVideo {
				continue
			}
			hasVideo = true
			r.Codec = s.CodecName
			r.Width = s.Width
			r.Height = s.Height
			r.FrameRate = parseRate(s.AvgFrameRate)
			if r.Duration == 0 {
				r.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			if r.AudioCodec == "" {
				r.AudioCodec = s.CodecName
				r.AudioSample, _ = strconv.Atoi(s.SampleRate)
			}
		}
	}
	if !hasVideo {
		return r, ErrNoVideoStream
	}
	return r, nil
}

// parseRate turns "30000/1001" into frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// StubFFmpeg stands in when the binaries are missing. Probes fail with
// ErrToolsUnavailable and frames are blank.
type StubFFmpeg struct {
	logger *slog.Logger
	width  int
	height int
}

func NewStubFFmpeg(logger *slog.Logger) *StubFFmpeg {
	return &StubFFmpeg{logger: logger, width: 640, height: 360}
}

func (f *StubFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	f.logger.Info("ffmpeg stub: probe requested", "path", filePath)
	return nil, ErrToolsUnavailable
}

func (f *StubFFmpeg) ExtractFrame(ctx context.Context, filePath string, offset float64) (image.Image, error) {
	f.logger.Debug("ffmpeg stub: frame requested", "path", filePath, "offset", offset)
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img, nil
}
