// Package cfgexport converts engine control flow graphs into lattice graphs
// for DOT rendering.
package cfgexport

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"gographer/internal/cfg"
)

// ToLattice maps a graph to lattice types. Block ranges become cumulative
// instruction index ranges; the first successor of a two-way block is the
// taken edge.
func ToLattice(g *cfg.Graph) *lattice.FuncCFG {
	lcfg := &lattice.FuncCFG{Name: g.Name}
	idx := 0
	for i, b := range g.Blocks {
		lb := &lattice.BasicBlock{
			ID:    i,
			Start: idx,
			End:   idx + b.InstrCount,
			Term:  len(b.Succs) == 0,
		}
		idx += b.InstrCount
		for si, s := range b.Succs {
			cond := ""
			if len(b.Succs) == 2 {
				if si == 0 {
					cond = "T"
				} else {
					cond = "F"
				}
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: s, Cond: cond})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}

// DOT renders one function graph as a DOT document.
func DOT(g *cfg.Graph) string {
	cg := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{ToLattice(g)}}
	return render.DOTCFG(cg, g.Name)
}
