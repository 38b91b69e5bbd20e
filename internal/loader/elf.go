package loader

import (
	"debug/elf"
	"io"

	"gographer/internal/disasm"
)

func openELF(path string, r io.ReaderAt) (*Binary, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, &UnsupportedFormatError{Path: path, Reason: "malformed ELF: " + err.Error()}
	}

	var arch disasm.Arch
	switch ef.Machine {
	case elf.EM_X86_64:
		arch = disasm.ArchAMD64
	case elf.EM_AARCH64:
		arch = disasm.ArchARM64
	default:
		return nil, &UnsupportedFormatError{Path: path, Reason: "unsupported ELF machine " + ef.Machine.String()}
	}

	bin := &Binary{Path: path, Arch: arch}
	for _, s := range ef.Sections {
		if s.Flags&elf.SHF_EXECINSTR == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		bin.Sections = append(bin.Sections, Section{Name: s.Name, Addr: s.Addr, Data: data})
	}

	// Go binaries keep function names in the pclntab even when stripped.
	if tab := elfPclntab(ef); tab != nil {
		if funcs := goFuncs(tab, elfTextStart(ef)); len(funcs) > 0 {
			bin.Funcs = funcs
			bin.GoSymbols = true
			return bin, nil
		}
	}

	// Native symbol table fallback.
	syms, _ := ef.Symbols()
	dyn, _ := ef.DynamicSymbols()
	for _, s := range append(syms, dyn...) {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 {
			continue
		}
		bin.Funcs = append(bin.Funcs, Func{Name: s.Name, Entry: s.Value, End: s.Value + s.Size})
	}
	return bin, nil
}

func elfTextStart(ef *elf.File) uint64 {
	if s := ef.Section(".text"); s != nil {
		return s.Addr
	}
	return 0
}

// elfPclntab returns the raw pclntab bytes, trying the section names used
// across Go toolchain generations, then a magic scan of data sections.
func elfPclntab(ef *elf.File) []byte {
	for _, name := range []string{".gopclntab", ".data.rel.ro.gopclntab"} {
		if s := ef.Section(name); s != nil {
			if data, err := s.Data(); err == nil {
				return data
			}
		}
	}
	for _, s := range ef.Sections {
		switch s.Type {
		case elf.SHT_PROGBITS:
		default:
			continue
		}
		if s.Flags&elf.SHF_EXECINSTR != 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			continue
		}
		if tab := scanPclntab(data); tab != nil {
			return tab
		}
	}
	return nil
}
