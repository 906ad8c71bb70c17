// Package smfplay decodes Standard MIDI Files into note timelines and
// plays them back through pluggable sound backends with a seekable,
// speed-adjustable transport.
package smfplay

import (
	"sort"

	"github.com/keyfall/smfplay-go/internal/smf"
)

// Note is one decoded note: pitch name like "C#4", start and duration in
// seconds, velocity in [0,1]. Immutable once produced.
type Note = smf.Note

// Score is a decoded note timeline, sorted ascending by start time.
type Score = smf.Score

// TimeSignature is the score's meter, e.g. 3/4.
type TimeSignature = smf.TimeSignature

// DecoderConfig controls decoding behavior; see the StrictRetrigger and
// MinNoteDuration fields.
type DecoderConfig = smf.Config

// FormatError reports a structurally invalid file; the file is rejected.
type FormatError = smf.FormatError

// TruncatedDataError reports a buffer that ended before any track data
// could be decoded.
type TruncatedDataError = smf.TruncatedDataError

// Parse decodes a Standard MIDI File into a Score. Damage inside a track is
// tolerated: the damaged track's completed notes are kept and decoding
// continues with the next track.
func Parse(data []byte) (*Score, error) {
	return smf.Parse(data)
}

// ParseWithConfig is Parse with explicit decoder configuration.
func ParseWithConfig(data []byte, cfg DecoderConfig) (*Score, error) {
	return smf.ParseWithConfig(data, cfg)
}

// FromNotes builds a Score directly from already-decoded notes, bypassing
// the decoder. Used when the caller receives structured note data instead
// of MIDI bytes. Notes are sorted and the total duration derived.
func FromNotes(notes []Note, tempoBPM int, sig TimeSignature) *Score {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	total := 0.0
	for _, n := range sorted {
		if end := n.End(); end > total {
			total = end
		}
	}
	if tempoBPM <= 0 {
		tempoBPM = 120
	}
	if sig.Numerator == 0 {
		sig = TimeSignature{Numerator: 4, Denominator: 4}
	}
	return &Score{
		Notes:         sorted,
		TotalDuration: total,
		TempoBPM:      tempoBPM,
		TimeSignature: sig,
	}
}
