package sf2

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Generator operators used by the test bank.
const (
	genInstrument = 41
	genSampleID   = 53
)

const testSampleLen = 8192

type testPreset struct {
	name    string
	bank    uint16
	program uint16
}

func le(vs ...any) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func name20(s string) []byte {
	b := make([]byte, 20)
	copy(b, s)
	return b
}

func chunk(id string, data []byte) []byte {
	out := append([]byte(id), le(uint32(len(data)))...)
	out = append(out, data...)
	if len(data)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func list(kind string, chunks ...[]byte) []byte {
	body := []byte(kind)
	for _, c := range chunks {
		body = append(body, c...)
	}
	return chunk("LIST", body)
}

// buildTestBank returns a SoundFont with one sine sample, one instrument
// using it across the whole keyboard, and one preset per entry of presets,
// all in file order.
func buildTestBank(presets []testPreset) []byte {
	info := list("INFO",
		chunk("ifil", le(uint16(2), uint16(1))),
		chunk("isng", []byte("EMU8000\x00")),
		chunk("INAM", []byte("Test Bank\x00")),
	)

	wave := make([]int16, testSampleLen+46)
	for i := 0; i < testSampleLen; i++ {
		wave[i] = int16(16000 * math.Sin(2*math.Pi*float64(i)/100))
	}
	sdta := list("sdta", chunk("smpl", le(wave)))

	var phdr, pbag, pgen []byte
	for i, p := range presets {
		phdr = append(phdr, name20(p.name)...)
		phdr = append(phdr, le(p.program, p.bank, uint16(i), uint32(0), uint32(0), uint32(0))...)
		pbag = append(pbag, le(uint16(i), uint16(0))...)
		pgen = append(pgen, le(uint16(genInstrument), uint16(0))...)
	}
	n := uint16(len(presets))
	phdr = append(phdr, name20("EOP")...)
	phdr = append(phdr, le(uint16(0), uint16(0), n, uint32(0), uint32(0), uint32(0))...)
	pbag = append(pbag, le(n, uint16(0))...)
	pgen = append(pgen, le(uint16(0), uint16(0))...)

	inst := append(name20("Sine"), le(uint16(0))...)
	inst = append(inst, name20("EOI")...)
	inst = append(inst, le(uint16(1))...)
	ibag := le(uint16(0), uint16(0), uint16(1), uint16(0))
	igen := le(uint16(genSampleID), uint16(0), uint16(0), uint16(0))

	shdr := append(name20("Sine"), le(
		uint32(0), uint32(testSampleLen), uint32(8), uint32(testSampleLen-8),
		uint32(44100), uint8(60), int8(0), uint16(0), uint16(1),
	)...)
	shdr = append(shdr, name20("EOS")...)
	shdr = append(shdr, make([]byte, 26)...)

	pdta := list("pdta",
		chunk("phdr", phdr),
		chunk("pbag", pbag),
		chunk("pmod", make([]byte, 10)),
		chunk("pgen", pgen),
		chunk("inst", inst),
		chunk("ibag", ibag),
		chunk("imod", make([]byte, 10)),
		chunk("igen", igen),
		chunk("shdr", shdr),
	)

	body := append([]byte("sfbk"), info...)
	body = append(body, sdta...)
	body = append(body, pdta...)
	return append(append([]byte("RIFF"), le(uint32(len(body)))...), body...)
}

func writeTestBank(t *testing.T, presets []testPreset) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sf2")
	if err := os.WriteFile(path, buildTestBank(presets), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
