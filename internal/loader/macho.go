package loader

import (
	"debug/macho"
	"io"

	"gographer/internal/disasm"
)

const machoPureInstructions = 0x80000000

func openMachO(path string, r io.ReaderAt) (*Binary, error) {
	mf, err := macho.NewFile(r)
	if err != nil {
		return nil, &UnsupportedFormatError{Path: path, Reason: "malformed Mach-O: " + err.Error()}
	}

	var arch disasm.Arch
	switch mf.Cpu {
	case macho.CpuAmd64:
		arch = disasm.ArchAMD64
	case macho.CpuArm64:
		arch = disasm.ArchARM64
	default:
		return nil, &UnsupportedFormatError{Path: path, Reason: "unsupported Mach-O cpu " + mf.Cpu.String()}
	}

	bin := &Binary{Path: path, Arch: arch}
	var textStart uint64
	for _, s := range mf.Sections {
		if s.Flags&machoPureInstructions == 0 && s.Name != "__text" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		if s.Name == "__text" {
			textStart = s.Addr
		}
		bin.Sections = append(bin.Sections, Section{Name: s.Name, Addr: s.Addr, Data: data})
	}

	if s := mf.Section("__gopclntab"); s != nil {
		if tab, err := s.Data(); err == nil {
			if funcs := goFuncs(tab, textStart); len(funcs) > 0 {
				bin.Funcs = funcs
				bin.GoSymbols = true
				return bin, nil
			}
		}
	}

	if mf.Symtab != nil {
		for _, s := range mf.Symtab.Syms {
			// Defined symbols only; sizes come from the next entry.
			if s.Sect == 0 || s.Name == "" {
				continue
			}
			bin.Funcs = append(bin.Funcs, Func{Name: s.Name, Entry: s.Value})
		}
	}
	return bin, nil
}
