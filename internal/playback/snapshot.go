package playback

import "sync"

// Snapshot is the playback state derived from transport events.
type Snapshot struct {
	CurrentTime   float64 `json:"current_time"`
	Duration      float64 `json:"duration"`
	IsPlaying     bool    `json:"is_playing"`
	HasEverPlayed bool    `json:"has_ever_played"`
}

// Tracker folds transport events into a Snapshot. It never queries the
// transport directly.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Watch subscribes the tracker to t and returns the cancel func.
func (tr *Tracker) Watch(t MediaTransport) func() {
	return t.Subscribe(tr.Apply)
}

// Apply updates the snapshot from one event.
func (tr *Tracker) Apply(ev Event) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	switch ev.Kind {
	case EventLoadedMetadata:
		tr.snap.Duration = ev.Duration
		tr.snap.CurrentTime = ev.CurrentTime
	case EventTimeUpdate, EventSeeked:
		tr.snap.CurrentTime = ev.CurrentTime
	case EventPlay:
		tr.snap.IsPlaying = true
		tr.snap.HasEverPlayed = true
		tr.snap.CurrentTime = ev.CurrentTime
	case EventPause:
		tr.snap.IsPlaying = false
		tr.snap.CurrentTime = ev.CurrentTime
	}
}

func (tr *Tracker) Snapshot() Snapshot {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.snap
}

// Reset forgets everything, for a newly loaded video.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	tr.snap = Snapshot{}
	tr.mu.Unlock()
}
