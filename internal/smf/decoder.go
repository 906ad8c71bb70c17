package smf

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	headerMagic = "MThd"
	trackMagic  = "MTrk"

	headerChunkSize = 14
	trackHeaderSize = 8

	defaultTempoMicros = 500000 // 120 BPM

	metaSetTempo      = 0x51
	metaTimeSignature = 0x58
	metaEndOfTrack    = 0x2F
)

// Config controls decoding behavior.
type Config struct {
	// StrictRetrigger changes how a Note-On for an already-open pitch is
	// handled. Default (false): the later Note-On overwrites the pending
	// entry and the earlier one is lost (last-open-wins). Strict (true):
	// the pending note is closed at the re-trigger tick and a new one
	// opens, so both notes survive.
	StrictRetrigger bool

	// MinNoteDuration clamps zero-length tick ranges so every decoded
	// note has an audible, positive duration. Zero means 0.05 s.
	MinNoteDuration float64
}

// Parse decodes a Standard MIDI File into a Score with default Config.
func Parse(data []byte) (*Score, error) {
	return ParseWithConfig(data, Config{})
}

// ParseWithConfig decodes a Standard MIDI File into a Score.
//
// Structural problems in the file header fail fast with *FormatError or
// *TruncatedDataError. Damage inside a track is handled best-effort: the
// damaged track is abandoned and the notes completed before the damage are
// kept. Real-world files are frequently slightly malformed, and a partial
// timeline beats no timeline.
func ParseWithConfig(data []byte, cfg Config) (*Score, error) {
	if cfg.MinNoteDuration <= 0 {
		cfg.MinNoteDuration = 0.05
	}

	if len(data) < headerChunkSize {
		return nil, &TruncatedDataError{Offset: len(data), Context: "header chunk"}
	}
	if string(data[0:4]) != headerMagic {
		return nil, &FormatError{Offset: 0, Reason: "missing MThd magic"}
	}
	headerLen := binary.BigEndian.Uint32(data[4:8])
	if headerLen < 6 {
		return nil, &FormatError{Offset: 4, Reason: "header chunk shorter than 6 bytes"}
	}
	trackCount := int(binary.BigEndian.Uint16(data[10:12]))
	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 != 0 {
		return nil, &FormatError{Offset: 12, Reason: "SMPTE time division is not supported"}
	}
	ticksPerBeat := int(division)
	if ticksPerBeat == 0 {
		return nil, &FormatError{Offset: 12, Reason: "zero ticks per beat"}
	}

	d := &decoder{
		cfg:         cfg,
		tempoMicros: defaultTempoMicros,
		timeSig:     TimeSignature{Numerator: 4, Denominator: 4},
	}

	offset := 8 + int(headerLen)
	for i := 0; i < trackCount; i++ {
		if offset+trackHeaderSize > len(data) {
			if i == 0 {
				return nil, &TruncatedDataError{Offset: offset, Context: "first track header"}
			}
			break // later tracks missing entirely: keep what we have
		}
		if string(data[offset:offset+4]) != trackMagic {
			// Unknown chunk types are legal in SMF; skip by declared length.
			skip := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
			offset += trackHeaderSize + skip
			i-- // an alien chunk does not count toward the track total
			if offset > len(data) {
				break
			}
			continue
		}
		length := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+trackHeaderSize:]
		if length < len(body) {
			body = body[:length]
		}
		d.walkTrack(body)
		offset += trackHeaderSize + length
	}

	return d.finish(ticksPerBeat), nil
}

type rawNote struct {
	key       int
	startTick int
	endTick   int
	velocity  float64
	seq       int
}

type openNote struct {
	startTick int
	velocity  float64
}

type decoder struct {
	cfg         Config
	tempoMicros int
	timeSig     TimeSignature
	notes       []rawNote
	seq         int
}

// walkTrack consumes one MTrk body. It never fails: on any malformed or
// truncated event it abandons the remainder of the track and keeps the
// notes completed so far.
func (d *decoder) walkTrack(body []byte) {
	var (
		pos     int
		tick    int
		running byte
		active  = map[int]openNote{}
	)

	for pos < len(body) {
		delta, next, ok := readVLQ(body, pos)
		if !ok {
			return
		}
		tick += int(delta)
		pos = next
		if pos >= len(body) {
			return
		}

		status := body[pos]
		if status < 0x80 {
			// Running status: reuse the previous status byte, the
			// current byte is already the first data byte.
			if running == 0 {
				return
			}
			status = running
		} else {
			pos++
			if status < 0xF0 {
				running = status
			}
		}

		switch {
		case status == 0xFF:
			if pos >= len(body) {
				return
			}
			metaType := body[pos]
			pos++
			length, next, ok := readVLQ(body, pos)
			if !ok || next+int(length) > len(body) {
				return
			}
			payload := body[next : next+int(length)]
			pos = next + int(length)
			// Meta events cancel running status, same as sysex.
			running = 0
			switch metaType {
			case metaSetTempo:
				if len(payload) == 3 {
					d.tempoMicros = int(payload[0])<<16 | int(payload[1])<<8 | int(payload[2])
				}
			case metaTimeSignature:
				if len(payload) >= 2 {
					d.timeSig = TimeSignature{
						Numerator:   int(payload[0]),
						Denominator: 1 << payload[1],
					}
				}
			case metaEndOfTrack:
				return
			}

		case status == 0xF0 || status == 0xF7:
			// Sysex: declared length, contents uninterpreted.
			length, next, ok := readVLQ(body, pos)
			if !ok || next+int(length) > len(body) {
				return
			}
			pos = next + int(length)
			running = 0

		default:
			kind := status & 0xF0
			dataLen := 2
			if kind == 0xC0 || kind == 0xD0 {
				dataLen = 1
			}
			if kind < 0x80 || kind > 0xE0 {
				return
			}
			if pos+dataLen > len(body) {
				return
			}
			p1 := body[pos]
			var p2 byte
			if dataLen == 2 {
				p2 = body[pos+1]
			}
			pos += dataLen

			switch {
			case kind == 0x90 && p2 > 0:
				d.noteOn(active, int(p1), tick, float64(p2)/127)
			case kind == 0x80 || (kind == 0x90 && p2 == 0):
				d.noteOff(active, int(p1), tick)
			}
			// Control change, poly pressure, program change, channel
			// pressure and pitch bend carry no note timing; their data
			// bytes were consumed above.
		}
	}
}

func (d *decoder) noteOn(active map[int]openNote, key, tick int, velocity float64) {
	if prev, ok := active[key]; ok && d.cfg.StrictRetrigger {
		d.emit(key, prev.startTick, tick, prev.velocity)
	}
	// Without StrictRetrigger the later Note-On simply overwrites the
	// pending entry (last-open-wins).
	active[key] = openNote{startTick: tick, velocity: velocity}
}

func (d *decoder) noteOff(active map[int]openNote, key, tick int) {
	on, ok := active[key]
	if !ok {
		return
	}
	delete(active, key)
	d.emit(key, on.startTick, tick, on.velocity)
}

func (d *decoder) emit(key, startTick, endTick int, velocity float64) {
	d.notes = append(d.notes, rawNote{
		key:       key,
		startTick: startTick,
		endTick:   endTick,
		velocity:  velocity,
		seq:       d.seq,
	})
	d.seq++
}

func (d *decoder) finish(ticksPerBeat int) *Score {
	secondsPerTick := float64(d.tempoMicros) / 1e6 / float64(ticksPerBeat)

	notes := make([]Note, 0, len(d.notes))
	total := 0.0
	for _, rn := range d.notes {
		start := float64(rn.startTick) * secondsPerTick
		duration := float64(rn.endTick-rn.startTick) * secondsPerTick
		if duration < d.cfg.MinNoteDuration {
			duration = d.cfg.MinNoteDuration
		}
		notes = append(notes, Note{
			Pitch:    NoteName(rn.key),
			Start:    start,
			Duration: duration,
			Velocity: rn.velocity,
		})
		if end := start + duration; end > total {
			total = end
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Start < notes[j].Start })

	return &Score{
		Notes:         notes,
		TotalDuration: total,
		TempoBPM:      int(math.Round(60e6 / float64(d.tempoMicros))),
		TimeSignature: d.timeSig,
	}
}

// readVLQ decodes a variable-length quantity: 7 bits per byte, MSB set on
// all but the last byte, capped at 4 bytes so malformed input cannot loop.
func readVLQ(data []byte, pos int) (value uint32, next int, ok bool) {
	for i := 0; i < 4; i++ {
		if pos >= len(data) {
			return 0, pos, false
		}
		b := data[pos]
		pos++
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, pos, true
		}
	}
	return 0, pos, false
}
