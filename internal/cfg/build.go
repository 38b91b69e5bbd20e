package cfg

import (
	"sort"

	"gographer/internal/disasm"
)

// Build constructs a control flow graph from a function's instruction stream.
// The algorithm:
//  1. Find block leaders: index 0, intra-function branch targets, and the
//     instruction after any control transfer.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges from each block's last instruction.
//  4. Prune blocks unreachable from the entry.
//
// Calls and indirect transfers end a block but contribute only their
// fallthrough edge. Instruction bytes are not retained; blocks keep offsets,
// counts and signatures only.
func Build(name string, insts []disasm.Inst) *Graph {
	if len(insts) == 0 {
		return &Graph{Name: name}
	}

	funcStart := insts[0].Addr
	last := insts[len(insts)-1]
	funcEnd := last.Addr + uint64(last.Size)

	addrToIdx := make(map[uint64]int, len(insts))
	for i, inst := range insts {
		addrToIdx[inst.Addr] = i
	}

	// Pass 1: identify block leaders.
	leaders := make(map[int]bool)
	leaders[0] = true
	for i, inst := range insts {
		if inst.Kind == disasm.KindNone && !inst.Invalid {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if inst.Kind.HasTarget() && inst.Target >= funcStart && inst.Target < funcEnd {
			if idx, ok := addrToIdx[inst.Target]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: partition into blocks.
	blocks := make([]Block, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	ranges := make([][2]int, len(sorted)) // instruction index ranges
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		startAddr := insts[start].Addr
		endAddr := funcEnd
		if end < len(insts) {
			endAddr = insts[end].Addr
		}
		blocks[i] = Block{
			Start:      startAddr,
			End:        endAddr,
			InstrCount: end - start,
		}
		ranges[i] = [2]int{start, end}
		leaderToBlock[start] = i
	}

	// Pass 3: successors. Branch targets precede the fallthrough edge so
	// the taken path stays first for rendering.
	for i := range blocks {
		blk := &blocks[i]
		r := ranges[i]
		lastInst := insts[r[1]-1]

		if lastInst.Invalid {
			blk.Invalid = true
			continue
		}

		if lastInst.Kind.HasTarget() && lastInst.Kind != disasm.KindCall &&
			lastInst.Target >= funcStart && lastInst.Target < funcEnd {
			if idx, ok := addrToIdx[lastInst.Target]; ok {
				if bid, ok := leaderToBlock[idx]; ok {
					blk.Succs = append(blk.Succs, bid)
				}
			}
		}
		if lastInst.Kind.HasFallthrough() {
			if next, ok := leaderToBlock[r[1]]; ok {
				blk.Succs = append(blk.Succs, next)
			}
		}
	}

	blocks, ranges = pruneUnreachable(blocks, ranges)

	// Signatures and degrees.
	g := &Graph{Name: name, Entry: funcStart, Blocks: blocks}
	for i := range g.Blocks {
		blk := &g.Blocks[i]
		r := ranges[i]
		for _, inst := range insts[r[0]:r[1]] {
			blk.Sig.Hist[inst.Class]++
		}
		blk.Sig.OutDeg = len(blk.Succs)
		g.EdgeCount += len(blk.Succs)
		for _, s := range blk.Succs {
			g.Blocks[s].Sig.InDeg++
		}
	}
	g.Print = fingerprint(g)
	return g
}

// pruneUnreachable drops blocks the entry cannot reach and rewrites
// successor indices. Dead code after an unconditional transfer is common in
// compiler output and would otherwise distort degree profiles.
func pruneUnreachable(blocks []Block, ranges [][2]int) ([]Block, [][2]int) {
	if len(blocks) == 0 {
		return blocks, ranges
	}
	reach := make([]bool, len(blocks))
	stack := []int{0}
	reach[0] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range blocks[n].Succs {
			if !reach[s] {
				reach[s] = true
				stack = append(stack, s)
			}
		}
	}

	remap := make([]int, len(blocks))
	kept := blocks[:0]
	keptRanges := ranges[:0]
	for i := range blocks {
		if !reach[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, blocks[i])
		keptRanges = append(keptRanges, ranges[i])
	}
	for i := range kept {
		succs := kept[i].Succs[:0]
		for _, s := range kept[i].Succs {
			if remap[s] >= 0 {
				succs = append(succs, remap[s])
			}
		}
		kept[i].Succs = succs
	}
	return kept, keptRanges
}

func fingerprint(g *Graph) Fingerprint {
	fp := Fingerprint{
		BlockBucket: bucket(len(g.Blocks)),
		EdgeBucket:  bucket(g.EdgeCount),
	}
	for _, b := range g.Blocks {
		for c, n := range b.Sig.Hist {
			fp.Totals[c] += int(n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(fp.Totals[:])))
	return fp
}
