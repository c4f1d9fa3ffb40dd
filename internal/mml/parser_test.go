package mml

import "testing"

func notesOf(tr Track) []Event {
	var out []Event
	for _, e := range tr.Events {
		if e.Type == EventNote {
			out = append(out, e)
		}
	}
	return out
}

func TestParseNoteByNumber(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("o5 l4 n60n64n67")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	notes := notesOf(score.Tracks[0])
	if len(notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(notes))
	}
	if notes[0].Note != 60 || notes[1].Note != 64 || notes[2].Note != 67 {
		t.Fatalf("expected MIDI notes 60,64,67, got %v", notes)
	}
}

func TestParseBasicMelody(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("t120 o5 l8 c d e f g a b > c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	notes := notesOf(score.Tracks[0])
	want := []int{60, 62, 64, 65, 67, 69, 71, 72}
	if len(notes) != len(want) {
		t.Fatalf("expected %d notes, got %d", len(want), len(notes))
	}
	for i, n := range want {
		if notes[i].Note != n {
			t.Fatalf("note %d = %d, want %d", i, notes[i].Note, n)
		}
		if notes[i].Tick != i*240 {
			t.Fatalf("note %d tick = %d, want %d", i, notes[i].Tick, i*240)
		}
	}
	if score.Tracks[0].EndTick != 8*240 {
		t.Fatalf("EndTick = %d, want %d", score.Tracks[0].EndTick, 8*240)
	}
}

func TestParseAccidentalsDotsAndTies(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("q8 c#4 d-4. e4^8 r2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	notes := notesOf(score.Tracks[0])
	if notes[0].Note != 61 || notes[1].Note != 61 || notes[2].Note != 64 {
		t.Fatalf("accidentals = %d,%d,%d", notes[0].Note, notes[1].Note, notes[2].Note)
	}
	if notes[1].Duration != 720 || notes[2].Duration != 720 {
		t.Fatalf("dotted/tied durations = %d,%d, want 720", notes[1].Duration, notes[2].Duration)
	}
	if notes[2].Tick != 480+720 {
		t.Fatalf("tick after dotted quarter = %d", notes[2].Tick)
	}
	if got := score.Tracks[0].EndTick; got != 480+720+720+960 {
		t.Fatalf("EndTick = %d", got)
	}
}

func TestParseLoopWithBreak(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("[c|d]3 e")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var got []int
	for _, n := range notesOf(score.Tracks[0]) {
		got = append(got, n.Note)
	}
	want := []int{60, 62, 60, 62, 60, 64}
	if len(got) != len(want) {
		t.Fatalf("notes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notes = %v, want %v", got, want)
		}
	}
	if _, err := p.Parse("[c d"); err == nil {
		t.Fatalf("expected error for unclosed loop")
	}
	if _, err := p.Parse("c d]"); err == nil {
		t.Fatalf("expected error for unmatched ']'")
	}
}

func TestParseTransposeAndQuantize(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("o4 l4 kt2 q4 c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ev := notesOf(score.Tracks[0])[0]
	if ev.Note != 50 {
		t.Fatalf("expected transposed note 50, got %d", ev.Note)
	}
	if ev.Duration != 240 {
		t.Fatalf("expected gated duration 240, got %d", ev.Duration)
	}
	if score.Tracks[0].EndTick != 480 {
		t.Fatalf("expected timeline duration 480, got %d", score.Tracks[0].EndTick)
	}

	score, err = p.Parse("c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if d := notesOf(score.Tracks[0])[0].Duration; d != 360 {
		t.Fatalf("default gate = %d, want 360", d)
	}
}

func TestParseProgramPanAndMultitrack(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("o4 p-50 @3 y1,64 x100 c; o5 @p8 c;  ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(score.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(score.Tracks))
	}
	first := score.Tracks[0]
	types := []EventType{}
	for _, e := range first.Events {
		types = append(types, e.Type)
	}
	want := []EventType{EventPan, EventProgram, EventControl, EventExpression, EventNote}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event types = %v, want %v", types, want)
		}
	}
	if c := first.Events[2]; c.Controller != 1 || c.Value != 64 {
		t.Fatalf("control = %+v", c)
	}
	note := first.Events[4]
	if note.Program != 3 || note.Pan != -50 || note.Note != 48 {
		t.Fatalf("note = %+v", note)
	}
	if pan := score.Tracks[1].Events[0]; pan.Type != EventPan || pan.Value != 64 {
		t.Fatalf("@p8 = %+v, want pan 64", pan)
	}
}

func TestParseVolumeScalesVelocity(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("c v8 c v0 c v99 c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	notes := notesOf(score.Tracks[0])
	want := []int{127, 64, 0, 127}
	for i, v := range want {
		if notes[i].Value != v {
			t.Fatalf("velocity %d = %d, want %d", i, notes[i].Value, v)
		}
	}
}

func TestOctaveShiftClampedToParserRange(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("o0<<<<<<c; o9>>>>>>b")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if n := notesOf(score.Tracks[0])[0].Note; n != 0 {
		t.Fatalf("expected clamped low note 0, got %d", n)
	}
	if n := notesOf(score.Tracks[1])[0].Note; n != 119 {
		t.Fatalf("expected clamped high note 119, got %d", n)
	}
	if _, err := p.Parse("o12 c"); err == nil {
		t.Fatalf("expected error for octave out of range")
	}
}

func TestParseWithLineAndBlockComments(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	score, err := p.Parse("c // d e\n/* f ; g */ a")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(score.Tracks) != 1 {
		t.Fatalf("comment ';' split tracks: %d", len(score.Tracks))
	}
	notes := notesOf(score.Tracks[0])
	if len(notes) != 2 || notes[0].Note != 60 || notes[1].Note != 69 {
		t.Fatalf("notes = %+v", notes)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	for _, src := range []string{"c0", "t0 c", "y1 c", "y200,1"} {
		if _, err := p.Parse(src); err == nil {
			t.Fatalf("Parse(%q) succeeded", src)
		}
	}
	if _, err := NewParser(ParserConfig{}).Parse("c"); err == nil {
		t.Fatalf("expected error for zero resolution")
	}
}
