package sfsampler

// RenderBlock fills dst with len(dst)/2 interleaved stereo frames in chunks of
// the block size. A chunk is silent when no bank is loaded or when a control
// call holds the instrument at that moment, so contention costs at most one
// block and RenderBlock never blocks. It does not allocate.
func (in *Instrument) RenderBlock(dst []int16) {
	frames := len(dst) / 2
	chunk := len(in.left)
	for off := 0; off < frames; off += chunk {
		n := min(frames-off, chunk)
		in.renderChunk(dst[off*2 : (off+n)*2])
	}
	if len(dst)%2 == 1 {
		dst[len(dst)-1] = 0
	}
}

// renderChunk renders len(out)/2 frames, at most one block.
func (in *Instrument) renderChunk(out []int16) {
	if !in.mu.TryLock() {
		clear(out)
		return
	}
	defer in.mu.Unlock()

	if in.engine == nil || !in.engine.Loaded() {
		clear(out)
		return
	}
	n := len(out) / 2
	l, r := in.left[:n], in.right[:n]
	in.engine.Render(l, r)
	for i := 0; i < n; i++ {
		out[i*2] = toPCM16(l[i])
		out[i*2+1] = toPCM16(r[i])
	}
}

func toPCM16(s float32) int16 {
	if s != s {
		return 0
	}
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}
