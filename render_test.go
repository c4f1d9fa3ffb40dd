package sfsampler

import "testing"

func TestRenderBlockConvertsAndInterleaves(t *testing.T) {
	fx := newFixture(t, "a.sf2")
	in := fx.open(t, "")
	dst := make([]int16, 8)
	in.RenderBlock(dst)
	for i := 0; i < len(dst); i += 2 {
		if dst[i] != 16383 || dst[i+1] != -16383 {
			t.Fatalf("frame %d = (%d, %d), want (16383, -16383)", i/2, dst[i], dst[i+1])
		}
	}

	fx.engine.level = 3
	in.RenderBlock(dst)
	if dst[0] != 32767 || dst[1] != -32767 {
		t.Fatalf("clipped frame = (%d, %d), want (32767, -32767)", dst[0], dst[1])
	}
}

func TestRenderBlockChunks(t *testing.T) {
	fx := newFixture(t, "a.sf2")
	in := fx.open(t, "")
	fx.engine.renders = nil
	in.RenderBlock(make([]int16, 600))
	want := []int{128, 128, 44}
	if len(fx.engine.renders) != len(want) {
		t.Fatalf("render chunks = %v, want %v", fx.engine.renders, want)
	}
	for i := range want {
		if fx.engine.renders[i] != want[i] {
			t.Fatalf("render chunks = %v, want %v", fx.engine.renders, want)
		}
	}
}

func TestRenderBlockOddLength(t *testing.T) {
	fx := newFixture(t, "a.sf2")
	in := fx.open(t, "")
	dst := []int16{9, 9, 9}
	in.RenderBlock(dst)
	if dst[0] != 16383 || dst[2] != 0 {
		t.Fatalf("odd block = %v", dst)
	}
}

func TestRenderBlockSilentWhileLocked(t *testing.T) {
	fx := newFixture(t, "a.sf2")
	in := fx.open(t, "")
	fx.engine.renders = nil
	dst := []int16{1, 2, 3, 4}

	in.mu.Lock()
	in.RenderBlock(dst)
	in.mu.Unlock()

	for i, s := range dst {
		if s != 0 {
			t.Fatalf("sample %d = %d, want 0", i, s)
		}
	}
	if len(fx.engine.renders) != 0 {
		t.Fatalf("engine rendered while locked: %v", fx.engine.renders)
	}
}

func TestContentionSilencesOneChunk(t *testing.T) {
	fx := newFixture(t, "a.sf2")
	in := fx.open(t, "")
	dst := make([]int16, 3*128*2)
	for i := range dst {
		dst[i] = 5
	}

	in.mu.Lock()
	in.renderChunk(dst[256:512])
	in.mu.Unlock()
	for i, s := range dst {
		want := int16(5)
		if i >= 256 && i < 512 {
			want = 0
		}
		if s != want {
			t.Fatalf("sample %d = %d, want %d", i, s, want)
		}
	}

	fx.engine.renders = nil
	in.RenderBlock(dst)
	if len(fx.engine.renders) != 3 {
		t.Fatalf("render chunks = %v, want 3 blocks", fx.engine.renders)
	}
	if dst[300] != 16383 {
		t.Fatalf("sample 300 = %d after unlock, want 16383", dst[300])
	}
}

func TestToPCM16(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{1.5, 32767},
		{-7, -32767},
		{nan, 0},
	}
	for _, tc := range cases {
		if got := toPCM16(tc.in); got != tc.want {
			t.Fatalf("toPCM16(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
