// Package loader maps executables into code sections and function entry
// points. ELF, PE and Mach-O containers are detected by magic bytes; function
// names come from the Go pclntab when the binary carries one, otherwise from
// the format's native symbol table.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gographer/internal/disasm"
)

var (
	elfMagic    = []byte{0x7f, 'E', 'L', 'F'}
	peMagic     = []byte{'M', 'Z'}
	machoMagics = [][]byte{
		{0xfe, 0xed, 0xfa, 0xce},
		{0xfe, 0xed, 0xfa, 0xcf},
		{0xce, 0xfa, 0xed, 0xfe},
		{0xcf, 0xfa, 0xed, 0xfe},
	}
)

// UnsupportedFormatError reports a binary the engine cannot process: unknown
// magic, an architecture without a decoder, or no recoverable functions.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("loader: unsupported binary %s: %s", e.Path, e.Reason)
}

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Section is one executable section mapped into memory.
type Section struct {
	Name string
	Addr uint64
	Data []byte
}

// Func is a recovered function. End is exclusive; when the symbol source
// carries no size it is derived from the next function or the section end.
type Func struct {
	Name  string
	Entry uint64
	End   uint64
}

// Binary is a prepared handle on a loaded executable. All section bytes are
// read eagerly; the underlying file is closed before Open returns.
type Binary struct {
	Path      string
	Arch      disasm.Arch
	Sections  []Section
	Funcs     []Func
	GoSymbols bool // names came from the pclntab
}

// Open loads the binary at path.
func Open(path string) (*Binary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, err := f.ReadAt(magic, 0)
	if err != nil && n < 4 {
		return nil, &UnsupportedFormatError{Path: path, Reason: "file too small"}
	}

	var bin *Binary
	switch {
	case bytes.Equal(magic, elfMagic):
		bin, err = openELF(path, f)
	case bytes.Equal(magic[:2], peMagic):
		bin, err = openPE(path, f)
	case isMachoMagic(magic):
		bin, err = openMachO(path, f)
	default:
		return nil, &UnsupportedFormatError{Path: path, Reason: "unknown magic"}
	}
	if err != nil {
		return nil, err
	}

	bin.finish()
	if len(bin.Funcs) == 0 {
		return nil, &UnsupportedFormatError{Path: path, Reason: "no recoverable functions"}
	}
	return bin, nil
}

func isMachoMagic(magic []byte) bool {
	for _, m := range machoMagics {
		if bytes.Equal(magic, m) {
			return true
		}
	}
	return false
}

// finish sorts functions, resolves missing sizes and drops entries outside
// any mapped code section.
func (b *Binary) finish() {
	sort.Slice(b.Funcs, func(i, j int) bool {
		if b.Funcs[i].Entry != b.Funcs[j].Entry {
			return b.Funcs[i].Entry < b.Funcs[j].Entry
		}
		return b.Funcs[i].Name < b.Funcs[j].Name
	})

	// Resolve sizes against the still-sorted slice, then compact. Static and
	// dynamic tables often carry the same entries, so duplicates are dropped.
	kept := make([]Func, 0, len(b.Funcs))
	for i, fn := range b.Funcs {
		if n := len(kept); n > 0 && fn.Name == kept[n-1].Name && fn.Entry == kept[n-1].Entry {
			continue
		}
		sec := b.section(fn.Entry)
		if sec == nil {
			continue
		}
		secEnd := sec.Addr + uint64(len(sec.Data))
		if fn.End <= fn.Entry || fn.End > secEnd {
			fn.End = secEnd
			for j := i + 1; j < len(b.Funcs); j++ {
				if next := b.Funcs[j].Entry; next > fn.Entry {
					if next < secEnd {
						fn.End = next
					}
					break
				}
			}
		}
		kept = append(kept, fn)
	}
	b.Funcs = kept
}

func (b *Binary) section(addr uint64) *Section {
	for i := range b.Sections {
		s := &b.Sections[i]
		if addr >= s.Addr && addr < s.Addr+uint64(len(s.Data)) {
			return s
		}
	}
	return nil
}

// Code returns the instruction bytes of fn, or nil if the function lies
// outside every mapped section.
func (b *Binary) Code(fn Func) []byte {
	sec := b.section(fn.Entry)
	if sec == nil {
		return nil
	}
	start := fn.Entry - sec.Addr
	end := fn.End - sec.Addr
	if end > uint64(len(sec.Data)) {
		end = uint64(len(sec.Data))
	}
	if start >= end {
		return nil
	}
	return sec.Data[start:end]
}
