package pipeline

import (
	"context"
	"image"
)

// FileFrames extracts frames of one video file. It satisfies
// playback.FrameSource.
type FileFrames struct {
	ff   FFmpeg
	path string
}

func NewFileFrames(ff FFmpeg, path string) *FileFrames {
	return &FileFrames{ff: ff, path: path}
}

func (f *FileFrames) FrameAt(ctx context.Context, offset float64) (image.Image, error) {
	return f.ff.ExtractFrame(ctx, f.path, offset)
}
