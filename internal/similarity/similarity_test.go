package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gographer/internal/cfg"
	"gographer/internal/disasm"
)

func ni(addr uint64, class disasm.Class) disasm.Inst {
	return disasm.Inst{Addr: addr, Size: 4, Class: class}
}

func br(addr uint64, kind disasm.Kind, target uint64) disasm.Inst {
	class := disasm.ClassBranch
	if kind == disasm.KindRet {
		class = disasm.ClassRet
	}
	return disasm.Inst{Addr: addr, Size: 4, Class: class, Kind: kind, Target: target}
}

// diamond builds a small if/else graph with the given name and base address.
func diamond(name string, base uint64) *cfg.Graph {
	return cfg.Build(name, []disasm.Inst{
		ni(base, disasm.ClassCmp),
		br(base+4, disasm.KindCondJump, base+20),
		ni(base+8, disasm.ClassArith),
		br(base+12, disasm.KindJump, base+28),
		ni(base+16, disasm.ClassNop), // dead, pruned
		ni(base+20, disasm.ClassLogic),
		ni(base+24, disasm.ClassMov),
		br(base+28, disasm.KindRet, 0),
	})
}

func linear(name string, base uint64, classes ...disasm.Class) *cfg.Graph {
	insts := make([]disasm.Inst, 0, len(classes)+1)
	for i, c := range classes {
		insts = append(insts, ni(base+uint64(4*i), c))
	}
	insts = append(insts, br(base+uint64(4*len(classes)), disasm.KindRet, 0))
	return cfg.Build(name, insts)
}

func TestScore_SelfIsOne(t *testing.T) {
	p := DefaultParams()
	for _, g := range []*cfg.Graph{
		diamond("d", 0x1000),
		linear("l", 0x2000, disasm.ClassMov, disasm.ClassArith),
	} {
		assert.Equal(t, 1.0, Score(g, g, p).Value, "sim(%s, %s)", g.Name, g.Name)
	}
}

func TestScore_Symmetric(t *testing.T) {
	p := DefaultParams()
	a := diamond("a", 0x1000)
	b := linear("b", 0x2000, disasm.ClassCmp, disasm.ClassArith, disasm.ClassLogic, disasm.ClassMov)
	assert.Equal(t, Score(a, b, p).Value, Score(b, a, p).Value)
}

func TestScore_Bounds(t *testing.T) {
	p := DefaultParams()
	graphs := []*cfg.Graph{
		diamond("a", 0x1000),
		linear("b", 0x2000, disasm.ClassMov),
		linear("c", 0x3000, disasm.ClassArith, disasm.ClassArith, disasm.ClassShift),
	}
	for _, x := range graphs {
		for _, y := range graphs {
			s := Score(x, y, p).Value
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestScore_EmptyIsZero(t *testing.T) {
	p := DefaultParams()
	empty := cfg.Build("empty", nil)
	full := diamond("full", 0x1000)
	assert.Equal(t, 0.0, Score(empty, full, p).Value)
	assert.Equal(t, 0.0, Score(full, empty, p).Value)
	assert.Equal(t, 0.0, Score(empty, empty, p).Value)
	assert.Equal(t, 0.0, Score(nil, full, p).Value)
}

func TestScore_DisjointContentIsZero(t *testing.T) {
	p := DefaultParams()
	a := linear("nops", 0x1000, disasm.ClassNop, disasm.ClassNop, disasm.ClassNop)
	b := cfg.Build("ariths", []disasm.Inst{
		ni(0x2000, disasm.ClassArith),
		ni(0x2004, disasm.ClassArith),
		ni(0x2008, disasm.ClassArith),
		{Addr: 0x200C, Size: 4, Class: disasm.ClassCall, Kind: disasm.KindIndirectCall},
	})
	// No shared mnemonic class anywhere.
	assert.Equal(t, 0.0, Score(a, b, p).Value)
}

func TestScore_PrefilterRejects(t *testing.T) {
	p := DefaultParams()
	small := linear("small", 0x1000, disasm.ClassMov)

	var insts []disasm.Inst
	addr := uint64(0x2000)
	for i := 0; i < 16; i++ {
		insts = append(insts, br(addr, disasm.KindCondJump, addr+4))
		addr += 4
	}
	insts = append(insts, br(addr, disasm.KindRet, 0))
	big := cfg.Build("big", insts)

	assert.Equal(t, 0.0, Score(small, big, p).Value)
}

func TestScore_NearIdenticalLandsBetween(t *testing.T) {
	p := DefaultParams()
	a := diamond("a", 0x1000)

	// Same shape plus one extra NOP instruction in the else block.
	b := cfg.Build("b", []disasm.Inst{
		ni(0x2000, disasm.ClassCmp),
		br(0x2004, disasm.KindCondJump, 0x2014),
		ni(0x2008, disasm.ClassArith),
		br(0x200C, disasm.KindJump, 0x2020),
		ni(0x2010, disasm.ClassNop), // dead
		ni(0x2014, disasm.ClassLogic),
		ni(0x2018, disasm.ClassNop),
		ni(0x201C, disasm.ClassMov),
		br(0x2020, disasm.KindRet, 0),
	})

	s := Score(a, b, p).Value
	require.Greater(t, s, 0.5, "near-identical graphs should score high")
	require.Less(t, s, 1.0, "an extra instruction must cost something")
}

func TestScore_GreedyFallbackMarksApprox(t *testing.T) {
	p := DefaultParams()
	p.ExactBudget = 1

	a := diamond("a", 0x1000)
	b := diamond("b", 0x2000)

	exact := Score(a, b, DefaultParams())
	greedy := Score(a, b, p)
	require.False(t, exact.Approx, "sub-budget pair must take the exact path")
	assert.True(t, greedy.Approx, "greedy path must be recorded on the pair")
	assert.LessOrEqual(t, greedy.Value, exact.Value, "greedy score is a lower bound")
	assert.Greater(t, greedy.Value, 0.0)

	// The marker belongs to the pair, not the graphs: a later exact scoring
	// of the same graphs comes back clean.
	assert.False(t, Score(a, b, DefaultParams()).Approx)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.4, p.Alpha)
	assert.Equal(t, 1, p.FingerprintSlack)
	assert.Equal(t, 4096, p.ExactBudget)
}
