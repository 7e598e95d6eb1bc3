package playback

import (
	"context"
	"image"
)

// EventKind names the media events the core listens to.
type EventKind string

const (
	EventLoadedMetadata EventKind = "loadedmetadata"
	EventTimeUpdate     EventKind = "timeupdate"
	EventSeeked         EventKind = "seeked"
	EventPlay           EventKind = "play"
	EventPause          EventKind = "pause"
)

// Event is a media event with the transport state at the time it fired.
type Event struct {
	Kind        EventKind
	CurrentTime float64
	Duration    float64
	Paused      bool
}

// MediaTransport is the video element as seen by the core. Implementations
// adapt a real player or simulate one.
type MediaTransport interface {
	// Ready reports whether metadata is loaded and seeks are accepted.
	Ready() bool
	CurrentTime() float64
	Duration() float64
	Paused() bool
	// Seek moves the position; completion is signalled by EventSeeked.
	Seek(t float64) error
	// Play returns once playback has actually started.
	Play(ctx context.Context) error
	Pause() error
	// NativeSize is the intrinsic resolution of the video.
	NativeSize() (width, height int)
	// Frame returns the frame currently presented.
	Frame(ctx context.Context) (image.Image, error)
	// Subscribe registers fn for every event and returns its cancel func.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// FullscreenEntry is one platform entry point for exclusive presentation.
// Nil funcs mean the entry point is not available on this host.
type FullscreenEntry struct {
	Name  string
	Enter func() error
	Exit  func() error
}

// Fullscreener is implemented by transports that can present fullscreen.
type Fullscreener interface {
	// FullscreenEntries lists entry points in fallback order.
	FullscreenEntries() []FullscreenEntry
	Fullscreen() bool
}

// FrameSource decodes the frame of a video at an offset in seconds.
type FrameSource interface {
	FrameAt(ctx context.Context, offset float64) (image.Image, error)
}
