// Package grapher is the engine: it lifts binaries into per-function control
// flow graphs and matches sample functions against reference binaries by CFG
// similarity.
package grapher

import (
	"fmt"
	"math"
	"regexp"

	"gographer/internal/cfg"
	"gographer/internal/disasm"
	"gographer/internal/loader"
)

// Disassembly is the result of processing one binary: its display name,
// source path and per-function graphs in entry-offset order. Immutable once
// constructed; the filter and subset operations return new Disassemblies.
type Disassembly struct {
	Name   string
	Path   string
	Graphs []*cfg.Graph
	Diags  []string // per-function decode diagnostics, non-fatal
}

// NewDisassembly loads, disassembles and graphs every recovered function of
// the binary at path. Functions that fail to decode are skipped with a
// diagnostic; an unloadable binary fails with the loader's error.
func NewDisassembly(name, path string) (*Disassembly, error) {
	bin, err := loader.Open(path)
	if err != nil {
		return nil, err
	}

	d := &Disassembly{Name: name, Path: path}
	for _, fn := range bin.Funcs {
		code := bin.Code(fn)
		if len(code) == 0 {
			d.Diags = append(d.Diags, fmt.Sprintf("%s: no code bytes at 0x%x", fn.Name, fn.Entry))
			continue
		}
		insts, err := disasm.Decode(bin.Arch, code, fn.Entry)
		if err != nil || len(insts) == 0 {
			d.Diags = append(d.Diags, fmt.Sprintf("%s: undecodable at 0x%x", fn.Name, fn.Entry))
			continue
		}
		d.Graphs = append(d.Graphs, cfg.Build(fn.Name, insts))
	}
	return d, nil
}

// FilterSymbol returns a new Disassembly containing only graphs whose
// function name matches the pattern (RE2 syntax, case sensitive unless the
// pattern opts in).
func (d *Disassembly) FilterSymbol(pattern string) (*Disassembly, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &InvalidArgumentError{Field: "regex", Reason: err.Error()}
	}
	out := &Disassembly{Name: d.Name, Path: d.Path, Diags: d.Diags}
	for _, g := range d.Graphs {
		if re.MatchString(g.Name) {
			out.Graphs = append(out.Graphs, g)
		}
	}
	return out, nil
}

// Subset returns a new Disassembly with the first ceil(ratio*N) graphs.
// Ratio must lie in (0,1].
func (d *Disassembly) Subset(ratio float64) (*Disassembly, error) {
	if ratio <= 0 || ratio > 1 || math.IsNaN(ratio) {
		return nil, &InvalidArgumentError{Field: "ratio", Reason: fmt.Sprintf("%v not in (0,1]", ratio)}
	}
	n := int(math.Ceil(ratio * float64(len(d.Graphs))))
	out := &Disassembly{Name: d.Name, Path: d.Path, Diags: d.Diags}
	out.Graphs = append(out.Graphs, d.Graphs[:n]...)
	return out, nil
}
