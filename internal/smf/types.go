package smf

import (
	"fmt"
	"sort"
	"strconv"
)

// Note is a single decoded note. Values are immutable once produced by the
// decoder; Start and Duration are in seconds.
type Note struct {
	Pitch    string  `json:"pitch"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Velocity float64 `json:"velocity"`
}

// End returns the time at which the note stops sounding.
func (n Note) End() float64 { return n.Start + n.Duration }

type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// Score is the decoded note timeline. Notes is sorted ascending by Start, so
// callers may binary-search by time (see IndexAtTime).
type Score struct {
	Notes         []Note        `json:"notes"`
	TotalDuration float64       `json:"totalDuration"`
	TempoBPM      int           `json:"tempoBPM"`
	TimeSignature TimeSignature `json:"timeSignature"`
}

// IndexAtTime returns the index of the first note with Start >= t.
func (s *Score) IndexAtTime(t float64) int {
	return sort.Search(len(s.Notes), func(i int) bool {
		return s.Notes[i].Start >= t
	})
}

// MaxNoteDuration returns the longest note duration in the score. Used to
// bound backward scans when computing the set of sounding notes.
func (s *Score) MaxNoteDuration() float64 {
	max := 0.0
	for _, n := range s.Notes {
		if n.Duration > max {
			max = n.Duration
		}
	}
	return max
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName converts a MIDI note number (0-127) to a pitch name like "C#4".
// Octave numbering follows the middle-C-is-C4 convention (60 -> "C4").
func NoteName(key int) string {
	return pitchClasses[key%12] + strconv.Itoa(key/12-1)
}

// MIDINote converts a pitch name back to its MIDI note number.
func MIDINote(pitch string) (int, bool) {
	if pitch == "" {
		return 0, false
	}
	classLen := 1
	if len(pitch) > 1 && pitch[1] == '#' {
		classLen = 2
	}
	class := -1
	for i, pc := range pitchClasses {
		if pc == pitch[:classLen] {
			class = i
			break
		}
	}
	if class < 0 {
		return 0, false
	}
	octave, err := strconv.Atoi(pitch[classLen:])
	if err != nil {
		return 0, false
	}
	key := (octave+1)*12 + class
	if key < 0 || key > 127 {
		return 0, false
	}
	return key, true
}

// FormatError reports a structurally invalid file (bad magic, bad header).
// It is unrecoverable; no partial Score accompanies it.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("smf: invalid format at offset %d: %s", e.Offset, e.Reason)
}

// TruncatedDataError reports that a read ran past the end of the buffer
// before any track data could be decoded.
type TruncatedDataError struct {
	Offset  int
	Context string
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("smf: truncated data at offset %d while reading %s", e.Offset, e.Context)
}
