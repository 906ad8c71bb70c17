package smfplay

import (
	"errors"
	"sync"
	"time"

	"github.com/keyfall/smfplay-go/internal/debug"
)

const (
	// triggerWindow is the tolerance ahead of a note's start within which
	// it is considered due, absorbing frame-timing jitter.
	triggerWindow = 0.05

	// lateWindow is how far past a note's start it may still fire. A note
	// the clock jumped further past is marked consumed without sounding.
	lateWindow = 0.1

	// minTriggerDuration is the floor applied to note durations handed to
	// the backend so zero-length notes stay audible.
	minTriggerDuration = 0.05

	tickInterval = 16 * time.Millisecond
)

// ErrEmptyScore is returned by Play when no score, or a score without
// notes, is loaded. Callers surface it as a warning; nothing starts.
var ErrEmptyScore = errors.New("smfplay: score has no notes")

// EventKind identifies engine lifecycle events delivered via Watch.
type EventKind int

const (
	// EventPlaybackEnded fires when the transport reaches the end of the
	// score and stops on its own.
	EventPlaybackEnded EventKind = iota
	// EventStopped fires on an explicit Stop.
	EventStopped
)

type Event struct {
	Kind EventKind
}

// Transport is a snapshot of the engine's playback state for UI redraw.
type Transport struct {
	CurrentTime float64
	IsPlaying   bool
	Speed       float64
	ActiveNotes []string
}

type EngineOption func(*Engine)

// WithCoordinator registers the engine with a coordinator so that starting
// it pauses every other registered player, and vice versa.
func WithCoordinator(c *Coordinator) EngineOption {
	return func(e *Engine) { e.coord = c }
}

// WithManualClock disables the internal ticker goroutine. The host drives
// the transport by calling Tick once per animation frame.
func WithManualClock() EngineOption {
	return func(e *Engine) { e.manualClock = true }
}

// WithClock substitutes the wall-clock source. Tests inject a fake clock to
// step time deterministically.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// Engine owns a Score and a transport clock and drives a SoundBackend:
// per frame it triggers the notes whose start time the clock has entered,
// tracks which notes already fired (so seeks and resumes do not re-trigger
// the past), and reports the currently sounding notes.
type Engine struct {
	backend     SoundBackend
	coord       *Coordinator
	regID       string
	manualClock bool
	now         func() time.Time

	mu        sync.Mutex
	score     *Score
	maxDur    float64
	playing   bool
	speed     float64
	volume    float64
	current   float64   // transport position in seconds
	origin    time.Time // wall-clock instant current was last rebased
	originPos float64   // transport position at origin
	triggered []bool    // by note index; index is the note identity
	cursor    int       // first index not yet consumed
	gen       uint64    // bumped on every transport change; stale tickers exit

	eventMu sync.Mutex
	eventCh chan Event
}

// NewEngine creates an engine driving the given backend.
func NewEngine(backend SoundBackend, opts ...EngineOption) *Engine {
	e := &Engine{
		backend: backend,
		speed:   1,
		volume:  1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.coord != nil {
		e.regID = e.coord.Register(e.Pause)
	}
	return e
}

// Load installs a score and resets the transport: position zero, nothing
// triggered, not playing.
func (e *Engine) Load(score *Score) {
	e.mu.Lock()
	e.gen++
	e.playing = false
	e.score = score
	e.current = 0
	e.cursor = 0
	if score != nil {
		e.triggered = make([]bool, len(score.Notes))
		e.maxDur = score.MaxNoteDuration()
	} else {
		e.triggered = nil
		e.maxDur = 0
	}
	e.mu.Unlock()
	e.backend.StopAll()
}

// Play starts or resumes playback from the current position. Notes whose
// start lies before the position are marked consumed so resuming mid-track
// does not replay the past. Returns ErrEmptyScore when there is nothing to
// play.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.score == nil || len(e.score.Notes) == 0 {
		e.mu.Unlock()
		debug.Logf("engine", "play requested with no notes loaded")
		return ErrEmptyScore
	}
	if e.playing {
		e.mu.Unlock()
		return nil
	}
	e.markConsumedBefore(e.current)
	e.playing = true
	e.origin = e.now()
	e.originPos = e.current
	e.gen++
	gen := e.gen
	manual := e.manualClock
	e.mu.Unlock()

	if e.coord != nil {
		e.coord.NotifyStart(e.regID)
	}
	if !manual {
		go e.runClock(gen)
	}
	return nil
}

// Pause halts the transport where it is and silences the backend. The
// pending tick loop is cancelled before the backend stops, so no further
// note can fire after Pause returns.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.playing = false
	e.gen++
	e.mu.Unlock()
	e.backend.StopAll()
}

// Stop is Pause plus a transport reset to position zero.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.playing = false
	e.gen++
	e.current = 0
	e.cursor = 0
	for i := range e.triggered {
		e.triggered[i] = false
	}
	e.mu.Unlock()
	e.backend.StopAll()
	e.sendEvent(Event{Kind: EventStopped})
}

// Seek moves the transport to t seconds, forward or backward, playing or
// paused. Sounding notes are cut first so stale sustains do not overlap the
// new position, and the consumed set is recomputed so notes before t never
// re-fire while notes at or after t will.
func (e *Engine) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	e.mu.Lock()
	if e.score != nil && t > e.score.TotalDuration {
		t = e.score.TotalDuration
	}
	wasPlaying := e.playing
	e.gen++
	e.current = t
	e.markConsumedBefore(t)
	if wasPlaying {
		// Rebase the clock origin so elapsed-time math stays consistent.
		e.origin = e.now()
		e.originPos = t
	}
	gen := e.gen
	manual := e.manualClock
	e.mu.Unlock()

	e.backend.StopAll()
	if wasPlaying && !manual {
		go e.runClock(gen)
	}
}

// SetSpeed changes how fast the transport advances relative to wall time.
// Values are clamped to a small positive minimum. Already-triggered notes
// are unaffected.
func (e *Engine) SetSpeed(multiplier float64) {
	if multiplier < 0.01 {
		multiplier = 0.01
	}
	e.mu.Lock()
	if e.playing {
		e.origin = e.now()
		e.originPos = e.current
	}
	e.speed = multiplier
	e.mu.Unlock()
}

// SetVolume clamps v to [0,1] and forwards it to the backend.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()
	e.backend.SetMasterVolume(v)
}

// Tick advances the transport to now and fires due notes. Hosts using
// WithManualClock call it once per animation frame; otherwise the internal
// ticker calls it. Safe to call while paused (no-op).
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	ended := e.tickLocked(now)
	e.mu.Unlock()
	if ended {
		e.backend.StopAll()
		e.sendEvent(Event{Kind: EventPlaybackEnded})
	}
}

// Snapshot returns the current transport state and sounding notes.
func (e *Engine) Snapshot() Transport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Transport{
		CurrentTime: e.current,
		IsPlaying:   e.playing,
		Speed:       e.speed,
		ActiveNotes: e.activeNotesLocked(),
	}
}

// Watch returns a buffered channel receiving engine events. Only the most
// recent Watch channel receives events; call it before Play.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 8)
	e.eventMu.Lock()
	e.eventCh = ch
	e.eventMu.Unlock()
	return ch
}

// Close stops playback, unregisters from the coordinator and disposes the
// backend with its loaded resources.
func (e *Engine) Close() {
	e.mu.Lock()
	e.playing = false
	e.gen++
	e.mu.Unlock()
	if e.coord != nil {
		e.coord.Unregister(e.regID)
	}
	e.backend.StopAll()
	e.backend.Dispose()
}

func (e *Engine) runClock(gen uint64) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for range ticker.C {
		e.mu.Lock()
		if e.gen != gen || !e.playing {
			e.mu.Unlock()
			return
		}
		ended := e.tickLocked(e.now())
		e.mu.Unlock()
		if ended {
			e.backend.StopAll()
			e.sendEvent(Event{Kind: EventPlaybackEnded})
			return
		}
	}
}

// tickLocked advances the clock and fires due notes. Reports whether the
// transport just ran off the end of the score (already stopped if so).
func (e *Engine) tickLocked(now time.Time) (ended bool) {
	if !e.playing || e.score == nil {
		return false
	}
	e.current = e.originPos + now.Sub(e.origin).Seconds()*e.speed

	notes := e.score.Notes
	for i := e.cursor; i < len(notes); i++ {
		n := notes[i]
		if n.Start-triggerWindow > e.current {
			break
		}
		if !e.triggered[i] {
			e.triggered[i] = true
			if e.current < n.Start+lateWindow {
				dur := n.Duration
				if dur < minTriggerDuration {
					dur = minTriggerDuration
				}
				e.backend.Trigger(n.Pitch, dur, n.Velocity)
			}
		}
	}
	for e.cursor < len(notes) && e.triggered[e.cursor] {
		e.cursor++
	}

	if e.current >= e.score.TotalDuration {
		// End of score gets full stop semantics: transport back to zero
		// with every note re-armed, so the next Play replays from the top.
		e.playing = false
		e.gen++
		e.current = 0
		e.cursor = 0
		for i := range e.triggered {
			e.triggered[i] = false
		}
		return true
	}
	return false
}

// markConsumedBefore recomputes the consumed set for a transport position:
// exactly the notes starting before t are consumed, everything at or after
// t is armed again.
func (e *Engine) markConsumedBefore(t float64) {
	if e.score == nil {
		return
	}
	e.cursor = len(e.score.Notes)
	for i, n := range e.score.Notes {
		e.triggered[i] = n.Start < t
		if !e.triggered[i] && i < e.cursor {
			e.cursor = i
		}
	}
}

// activeNotesLocked lists the pitch names sounding at the current position,
// with the trigger window applied on both edges for UI highlighting.
func (e *Engine) activeNotesLocked() []string {
	if e.score == nil {
		return nil
	}
	var active []string
	from := e.score.IndexAtTime(e.current - e.maxDur - triggerWindow)
	for i := from; i < len(e.score.Notes); i++ {
		n := e.score.Notes[i]
		if n.Start-triggerWindow > e.current {
			break
		}
		if e.current <= n.End()+triggerWindow {
			active = append(active, n.Pitch)
		}
	}
	return active
}

func (e *Engine) sendEvent(ev Event) {
	e.eventMu.Lock()
	ch := e.eventCh
	e.eventMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop rather than block the transport.
		}
	}
}
