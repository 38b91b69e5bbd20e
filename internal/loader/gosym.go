package loader

import (
	"bytes"
	"debug/gosym"
	"encoding/binary"
)

// pclntab header magics by toolchain generation (go1.2, go1.16, go1.18,
// go1.20), little endian, followed by two zero bytes.
var pclntabMagics = [][]byte{
	{0xfb, 0xff, 0xff, 0xff, 0x00, 0x00},
	{0xfa, 0xff, 0xff, 0xff, 0x00, 0x00},
	{0xf0, 0xff, 0xff, 0xff, 0x00, 0x00},
	{0xf1, 0xff, 0xff, 0xff, 0x00, 0x00},
}

// scanPclntab hunts for a pclntab header inside an arbitrary data section.
// Used for containers that carry no dedicated section name, PE in particular.
func scanPclntab(data []byte) []byte {
	for _, magic := range pclntabMagics {
		off := 0
		for {
			i := bytes.Index(data[off:], magic)
			if i < 0 {
				break
			}
			start := off + i
			// Quantum and pointer size sanity check before handing the
			// candidate to debug/gosym.
			if start+8 <= len(data) {
				q, ps := data[start+6], data[start+7]
				if (q == 1 || q == 2 || q == 4) && (ps == 4 || ps == 8) {
					return data[start:]
				}
			}
			off = start + 1
		}
	}
	return nil
}

// goFuncs parses a pclntab and returns the functions it describes. A corrupt
// table yields nil rather than an error; the caller falls back to native
// symbols.
func goFuncs(tab []byte, textStart uint64) (funcs []Func) {
	defer func() {
		// debug/gosym is not hardened against truncated tables.
		if recover() != nil {
			funcs = nil
		}
	}()

	if textStart == 0 && len(tab) >= 8 && (tab[0] == 0xf0 || tab[0] == 0xf1) {
		// go1.18+ headers store the text start themselves; recover it for
		// containers where no .text address was available.
		ptrSize := int(tab[7])
		if len(tab) >= 8+3*ptrSize {
			textStart = readPtr(tab[8+2*ptrSize:], ptrSize)
		}
	}

	lt := gosym.NewLineTable(tab, textStart)
	st, err := gosym.NewTable(nil, lt)
	if err != nil {
		return nil
	}
	for _, f := range st.Funcs {
		if f.Name == "" || f.End <= f.Entry {
			continue
		}
		funcs = append(funcs, Func{Name: f.Name, Entry: f.Entry, End: f.End})
	}
	return funcs
}

func readPtr(b []byte, size int) uint64 {
	if size == 4 {
		if len(b) < 4 {
			return 0
		}
		return uint64(binary.LittleEndian.Uint32(b))
	}
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
