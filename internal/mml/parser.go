package mml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

const quantMax = 8

type Parser struct{ cfg ParserConfig }

func NewParser(cfg ParserConfig) *Parser { return &Parser{cfg: cfg} }

// Parse splits input on ';' into tracks. Parts holding only whitespace are
// dropped, so a trailing ';' does not add an empty track.
func (p *Parser) Parse(input string) (*Score, error) {
	if p.cfg.Resolution <= 0 || p.cfg.DefaultLValue <= 0 {
		return nil, fmt.Errorf("mml: invalid parser config %+v", p.cfg)
	}
	parts := strings.Split(stripComments(input), ";")
	tracks := make([]Track, 0, len(parts))
	for n, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		tr, err := p.parseTrack(part)
		if err != nil {
			return nil, fmt.Errorf("mml: track %d: %w", n, err)
		}
		tracks = append(tracks, tr)
	}
	return &Score{
		Resolution: p.cfg.Resolution,
		InitialBPM: p.cfg.DefaultBPM,
		Tracks:     tracks,
	}, nil
}

func (p *Parser) parseTrack(input string) (Track, error) {
	expanded, err := expandLoops(input)
	if err != nil {
		return Track{}, err
	}
	st := newState(p.cfg)
	events := make([]Event, 0, 64)
	i := 0
	for i < len(expanded) {
		ch := lower(expanded[i])
		if isSpace(ch) {
			i++
			continue
		}
		switch {
		case ch == 'n' && i+1 < len(expanded) && unicode.IsDigit(rune(expanded[i+1])):
			nn, next, e := parseNumberDefault(expanded, i+1, 60)
			if e != nil {
				return Track{}, e
			}
			evt, stepDur, next, e := st.note(expanded, next, nn)
			if e != nil {
				return Track{}, e
			}
			events = append(events, evt)
			st.tick += stepDur
			i = next
		case isNote(ch):
			base, next := parseAccidentals(expanded, i)
			evt, stepDur, next, e := st.note(expanded, next, st.octave*12+base)
			if e != nil {
				return Track{}, e
			}
			events = append(events, evt)
			st.tick += stepDur
			i = next
		case ch == 'r':
			dur, next, e := parseLengthWithTie(expanded, i+1, st)
			if e != nil {
				return Track{}, e
			}
			events = append(events, Event{Type: EventRest, Tick: st.tick, Duration: dur})
			st.tick += dur
			i = next
		case ch == 'l':
			length, next, e := parseLengthToken(expanded, i+1, st)
			if e != nil {
				return Track{}, e
			}
			st.defaultLen = length
			i = next
		case ch == 't':
			val, next, e := parseNumberDefault(expanded, i+1, int(st.bpm))
			if e != nil {
				return Track{}, e
			}
			if val <= 0 {
				return Track{}, fmt.Errorf("tempo must be positive at %d", i)
			}
			st.bpm = float64(val)
			events = append(events, Event{Type: EventTempo, Tick: st.tick, Value: val})
			i = next
		case ch == 'o':
			val, next, e := parseNumberDefault(expanded, i+1, st.octave)
			if e != nil {
				return Track{}, e
			}
			if val < p.cfg.MinOctave || val > p.cfg.MaxOctave {
				return Track{}, fmt.Errorf("octave out of range at %d", i)
			}
			st.octave = val
			i = next
		case ch == '<' || ch == '>':
			val, next, e := parseNumberDefault(expanded, i+1, 1)
			if e != nil {
				return Track{}, e
			}
			if ch == '>' {
				val = -val
			}
			st.octave = clampInt(st.octave+val*p.cfg.OctavePolarize, p.cfg.MinOctave, p.cfg.MaxOctave)
			i = next
		case ch == 'v':
			val, next, e := parseNumberDefault(expanded, i+1, st.volume)
			if e != nil {
				return Track{}, e
			}
			st.volume = clampInt(val, 0, st.maxVolume)
			events = append(events, Event{Type: EventVolume, Tick: st.tick, Value: st.volume})
			i = next
		case ch == 'x':
			val, next, e := parseNumberDefault(expanded, i+1, 127)
			if e != nil {
				return Track{}, e
			}
			events = append(events, Event{Type: EventExpression, Tick: st.tick, Value: clampInt(val, 0, 127)})
			i = next
		case ch == 'q':
			val, next, e := parseNumberDefault(expanded, i+1, st.quantValue)
			if e != nil {
				return Track{}, e
			}
			st.quantValue = clampInt(val, 0, quantMax)
			st.gatePercent = (st.quantValue * 100) / quantMax
			events = append(events, Event{Type: EventQuantize, Tick: st.tick, Value: st.quantValue})
			i = next
		case ch == 'k' && i+1 < len(expanded) && lower(expanded[i+1]) == 't':
			val, next, e := parseSignedNumberDefault(expanded, i+2, st.transpose)
			if e != nil {
				return Track{}, e
			}
			st.transpose = val
			events = append(events, Event{Type: EventTranspose, Tick: st.tick, Value: val})
			i = next
		case ch == 'p':
			val, next, e := parseSignedNumberDefault(expanded, i+1, st.pan)
			if e != nil {
				return Track{}, e
			}
			st.pan = normalizePanValue(val)
			events = append(events, Event{Type: EventPan, Tick: st.tick, Value: st.pan})
			i = next
		case ch == 'y':
			cc, next, e := parseNumberDefault(expanded, i+1, -1)
			if e != nil {
				return Track{}, e
			}
			if cc < 0 || cc > 127 || next >= len(expanded) || expanded[next] != ',' {
				return Track{}, fmt.Errorf("control change needs y<controller>,<value> at %d", i)
			}
			val, n2, e := parseNumberDefault(expanded, next+1, 0)
			if e != nil {
				return Track{}, e
			}
			events = append(events, Event{Type: EventControl, Tick: st.tick, Controller: cc, Value: clampInt(val, 0, 127)})
			i = n2
		case ch == '@':
			if i+1 < len(expanded) && lower(expanded[i+1]) == 'p' {
				val, next, e := parseSignedNumberDefault(expanded, i+2, st.pan)
				if e != nil {
					return Track{}, e
				}
				st.pan = normalizePanValue(val)
				events = append(events, Event{Type: EventPan, Tick: st.tick, Value: st.pan})
				i = next
				continue
			}
			val, next, e := parseNumberDefault(expanded, i+1, st.program)
			if e != nil {
				return Track{}, e
			}
			st.program = clampInt(val, 0, 127)
			events = append(events, Event{Type: EventProgram, Tick: st.tick, Value: st.program})
			i = next
		default:
			i++
		}
	}
	return Track{Events: events, EndTick: st.tick}, nil
}

type parseState struct {
	resolution  int
	tick        int
	octave      int
	defaultLen  int
	bpm         float64
	volume      int
	maxVolume   int
	quantValue  int
	gatePercent int
	transpose   int
	pan         int
	program     int
}

func newState(cfg ParserConfig) parseState {
	maxVolume := cfg.MaxVolume
	if maxVolume <= 0 {
		maxVolume = 16
	}
	quantValue := (quantMax * 3) / 4
	return parseState{
		resolution:  cfg.Resolution,
		octave:      cfg.DefaultOctave,
		defaultLen:  cfg.Resolution / cfg.DefaultLValue,
		bpm:         cfg.DefaultBPM,
		volume:      cfg.DefaultVolume,
		maxVolume:   maxVolume,
		quantValue:  quantValue,
		gatePercent: (quantValue * 100) / quantMax,
	}
}

// note reads the length following a note at s[at:] and builds its event.
// It returns the event, the step to the next note and the next offset.
func (st parseState) note(s string, at int, nn int) (Event, int, int, error) {
	dur, next, err := parseLengthWithTie(s, at, st)
	if err != nil {
		return Event{}, 0, at, err
	}
	return Event{
		Type:     EventNote,
		Tick:     st.tick,
		Duration: parseGateDuration(dur, st.gatePercent),
		Note:     clampInt(nn+st.transpose, 0, 127),
		Value:    scaledVelocity(st.volume, st.maxVolume),
		Program:  st.program,
		Pan:      st.pan,
	}, dur, next, nil
}

// parseAccidentals returns the semitone offset of the note name at s[at]
// with any '#', '+' or '-' suffixes applied.
func parseAccidentals(s string, at int) (int, int) {
	shift := noteOffsets[lower(s[at])]
	i := at + 1
	for i < len(s) {
		switch lower(s[i]) {
		case '#', '+':
			shift++
		case '-':
			shift--
		default:
			return shift, i
		}
		i++
	}
	return shift, i
}

func parseLengthWithTie(s string, at int, st parseState) (int, int, error) {
	dur, i, err := parseLengthToken(s, at, st)
	if err != nil {
		return 0, at, err
	}
	for i < len(s) && s[i] == '^' {
		extra, next, e := parseLengthToken(s, i+1, st)
		if e != nil {
			return 0, at, e
		}
		dur += extra
		i = next
	}
	return dur, i, nil
}

func parseLengthToken(s string, at int, st parseState) (int, int, error) {
	val, i, err := parseNumberOptional(s, at)
	if err != nil {
		return 0, at, err
	}
	base := st.defaultLen
	if val == 0 {
		return 0, at, fmt.Errorf("zero note length at %d", at)
	}
	if val > 0 {
		base = st.resolution / val
	}
	dots := 0
	for i < len(s) && s[i] == '.' {
		dots++
		i++
	}
	dur, term := base, base
	for k := 0; k < dots; k++ {
		term >>= 1
		dur += term
	}
	return dur, i, nil
}

func parseNumberDefault(s string, at int, def int) (int, int, error) {
	v, i, err := parseNumberOptional(s, at)
	if err != nil {
		return 0, at, err
	}
	if v == -1 {
		return def, i, nil
	}
	return v, i, nil
}

func parseSignedNumberDefault(s string, at int, def int) (int, int, error) {
	if at >= len(s) {
		return def, at, nil
	}
	sign := 1
	i := at
	if s[i] == '+' {
		i++
	} else if s[i] == '-' {
		sign = -1
		i++
	}
	v, next, err := parseNumberOptional(s, i)
	if err != nil {
		return 0, at, err
	}
	if v == -1 {
		return def, next, nil
	}
	return sign * v, next, nil
}

func parseNumberOptional(s string, at int) (int, int, error) {
	i, start := at, at
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if start == i {
		return -1, i, nil
	}
	n, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, at, err
	}
	return n, i, nil
}

func parseGateDuration(dur int, gatePercent int) int {
	if gatePercent <= 0 {
		return 0
	}
	gated := (dur * gatePercent) / 100
	if gated <= 0 && dur > 0 {
		return 1
	}
	return gated
}

// normalizePanValue maps p0..p8 onto -64..64 in steps of 16 and clamps
// larger signed values to that range; 0 is centre.
func normalizePanValue(v int) int {
	if v >= 0 && v <= 8 {
		return (v - 4) * 16
	}
	return clampInt(v, -64, 64)
}

func scaledVelocity(volume, maxVolume int) int {
	norm := float64(clampInt(volume, 0, maxVolume)) / float64(maxVolume)
	return clampInt(int(math.Round(norm*127)), 0, 127)
}

func stripComments(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	for i := 0; i < len(src); i++ {
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '*' {
			i += 2
			for i < len(src) {
				if i+1 < len(src) && src[i] == '*' && src[i+1] == '/' {
					i++
					break
				}
				i++
			}
			continue
		}
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '/' {
			i += 2
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) && src[i] == '\n' {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(src[i])
	}
	return out.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\r' || b == '\t' }
func isNote(b byte) bool  { _, ok := noteOffsets[b]; return ok }

func expandLoops(src string) (string, error) {
	out, i, err := parseExpanded(src, 0, 0)
	if err != nil {
		return "", err
	}
	if i != len(src) {
		return "", fmt.Errorf("unexpected parser position: %d", i)
	}
	return out, nil
}

func parseExpanded(src string, at, depth int) (string, int, error) {
	var out strings.Builder
	for at < len(src) {
		ch := src[at]
		if ch == ']' {
			if depth == 0 {
				return "", at, fmt.Errorf("unmatched ']' at %d", at)
			}
			return out.String(), at, nil
		}
		if ch != '[' {
			out.WriteByte(ch)
			at++
			continue
		}
		body, next, err := parseLoopBody(src, at+1)
		if err != nil {
			return "", at, err
		}
		out.WriteString(body)
		at = next
	}
	if depth > 0 {
		return "", at, fmt.Errorf("unclosed '['")
	}
	return out.String(), at, nil
}

// parseLoopBody expands "body]n" starting after '['. Text after a '|' is
// skipped on the final pass. n defaults to 2.
func parseLoopBody(src string, at int) (string, int, error) {
	var pre, post strings.Builder
	breakHit := false
	for at < len(src) {
		ch := src[at]
		if ch == '[' {
			body, next, err := parseLoopBody(src, at+1)
			if err != nil {
				return "", at, err
			}
			if breakHit {
				post.WriteString(body)
			} else {
				pre.WriteString(body)
			}
			at = next
			continue
		}
		if ch == '|' {
			breakHit = true
			at++
			continue
		}
		if ch == ']' {
			repeat, next, err := parseNumberDefault(src, at+1, 2)
			if err != nil {
				return "", at, err
			}
			repeat = max(repeat, 1)
			preS, postS := pre.String(), post.String()
			var out strings.Builder
			for i := 0; i < repeat; i++ {
				out.WriteString(preS)
				if i < repeat-1 {
					out.WriteString(postS)
				}
			}
			return out.String(), next, nil
		}
		if breakHit {
			post.WriteByte(ch)
		} else {
			pre.WriteByte(ch)
		}
		at++
	}
	return "", at, fmt.Errorf("unclosed loop block")
}
