package loader

import (
	"debug/pe"
	"io"

	"gographer/internal/disasm"
)

const (
	peSectionExecute = 0x20000000
	peMachineARM64   = 0xaa64
)

func openPE(path string, r io.ReaderAt) (*Binary, error) {
	pf, err := pe.NewFile(r)
	if err != nil {
		return nil, &UnsupportedFormatError{Path: path, Reason: "malformed PE: " + err.Error()}
	}

	var arch disasm.Arch
	switch pf.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		arch = disasm.ArchAMD64
	case peMachineARM64:
		arch = disasm.ArchARM64
	default:
		return nil, &UnsupportedFormatError{Path: path, Reason: "unsupported PE machine"}
	}

	var imageBase uint64
	switch oh := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
	}

	bin := &Binary{Path: path, Arch: arch}
	var textStart uint64
	for _, s := range pf.Sections {
		if s.Characteristics&peSectionExecute == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, &IOError{Path: path, Err: err}
		}
		addr := imageBase + uint64(s.VirtualAddress)
		if s.Name == ".text" {
			textStart = addr
		}
		bin.Sections = append(bin.Sections, Section{Name: s.Name, Addr: addr, Data: data})
	}

	// PE has no pclntab section name; find the table through the runtime
	// symbols when present, otherwise scan the data sections for its magic.
	if tab := pePclntab(pf); tab != nil {
		if funcs := goFuncs(tab, textStart); len(funcs) > 0 {
			bin.Funcs = funcs
			bin.GoSymbols = true
			return bin, nil
		}
	}

	// COFF symbol fallback. Values are section relative.
	for _, s := range pf.Symbols {
		if s.SectionNumber <= 0 || int(s.SectionNumber) > len(pf.Sections) {
			continue
		}
		sec := pf.Sections[s.SectionNumber-1]
		if sec.Characteristics&peSectionExecute == 0 {
			continue
		}
		bin.Funcs = append(bin.Funcs, Func{
			Name:  s.Name,
			Entry: imageBase + uint64(sec.VirtualAddress) + uint64(s.Value),
		})
	}
	return bin, nil
}

func pePclntab(pf *pe.File) []byte {
	// Symbol values are section relative.
	var start, end uint64
	var sectNum int16
	for _, s := range pf.Symbols {
		switch s.Name {
		case "runtime.pclntab":
			start = uint64(s.Value)
			sectNum = int16(s.SectionNumber)
		case "runtime.epclntab":
			end = uint64(s.Value)
		}
	}
	if end > start && sectNum > 0 && int(sectNum) <= len(pf.Sections) {
		data, err := pf.Sections[sectNum-1].Data()
		if err == nil && end <= uint64(len(data)) {
			return data[start:end]
		}
	}

	for _, sec := range pf.Sections {
		if sec.Characteristics&peSectionExecute != 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		if tab := scanPclntab(data); tab != nil {
			return tab
		}
	}
	return nil
}
