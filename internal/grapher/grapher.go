package grapher

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"gographer/internal/cfg"
	"gographer/internal/report"
	"gographer/internal/similarity"
)

// Input names one binary to disassemble.
type Input struct {
	Name string
	Path string
}

// Grapher compares a sample disassembly against reference disassemblies.
// Scoring runs across a bounded worker group; the deterministic sorts on the
// way out make reports byte-identical across runs.
type Grapher struct {
	threshold float64
	progress  bool
	params    similarity.Params
	workers   int
}

// New builds a Grapher with the default tuning. Threshold must lie in [0,1].
func New(threshold float64, displayProgress bool) (*Grapher, error) {
	return NewWithParams(threshold, displayProgress, similarity.DefaultParams())
}

// NewWithParams builds a Grapher with explicit tuning constants.
func NewWithParams(threshold float64, displayProgress bool, params similarity.Params) (*Grapher, error) {
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, &InvalidArgumentError{Field: "threshold", Reason: fmt.Sprintf("%v not in [0,1]", threshold)}
	}
	return &Grapher{
		threshold: threshold,
		progress:  displayProgress,
		params:    params,
		workers:   runtime.NumCPU(),
	}, nil
}

// GenerateGraphs disassembles the inputs in parallel, preserving input
// order. The result is all-or-nothing: any failing binary fails the call.
func (g *Grapher) GenerateGraphs(inputs []Input) ([]*Disassembly, error) {
	out := make([]*Disassembly, len(inputs))
	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, in := range inputs {
		eg.Go(func() error {
			d, err := NewDisassembly(in.Name, in.Path)
			if err != nil {
				return err
			}
			out[i] = d
			if g.progress {
				fmt.Fprintf(os.Stderr, "graphed %s: %d functions\n", in.Name, len(d.Graphs))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Compare scores every sample function against every function of every
// reference and rolls the results up into a report. For each reference, a
// sample function contributes its single best pairing; pairings below the
// threshold are dropped and contribute zero to the aggregate.
func (g *Grapher) Compare(sample *Disassembly, refs []*Disassembly) *report.CompareReport {
	rep := &report.CompareReport{SampleName: sample.Name}
	for _, ref := range refs {
		rep.Matches = append(rep.Matches, g.compareOne(sample, ref))
		if g.progress {
			fmt.Fprintf(os.Stderr, "compared %s vs %s\n", sample.Name, ref.Name)
		}
	}

	sort.SliceStable(rep.Matches, func(i, j int) bool {
		if rep.Matches[i].Similarity != rep.Matches[j].Similarity {
			return rep.Matches[i].Similarity > rep.Matches[j].Similarity
		}
		return rep.Matches[i].Dest < rep.Matches[j].Dest
	})
	return rep
}

func (g *Grapher) compareOne(sample, ref *Disassembly) report.BinaryMatch {
	type best struct {
		score float64
		graph *cfg.Graph
	}
	bests := make([]best, len(sample.Graphs))

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, f := range sample.Graphs {
		eg.Go(func() error {
			// Reference order breaks score ties, first wins.
			b := best{}
			for _, r := range ref.Graphs {
				if s := similarity.Score(f, r, g.params); s.Value > b.score || b.graph == nil {
					b = best{score: s.Value, graph: r}
				}
			}
			bests[i] = b
			return nil
		})
	}
	_ = eg.Wait()

	bm := report.BinaryMatch{Source: sample.Name, Dest: ref.Name}
	var sum float64
	for i, f := range sample.Graphs {
		b := bests[i]
		if b.graph == nil || b.score < g.threshold {
			continue
		}
		sum += b.score
		bm.Methods = append(bm.Methods, report.MethodMatch{
			OldName:       f.Name,
			ResolvedName:  b.graph.Name,
			MalwareOffset: f.Entry,
			CleanOffset:   b.graph.Entry,
			Similarity:    b.score,
		})
	}
	if len(sample.Graphs) > 0 {
		bm.Similarity = sum / float64(len(sample.Graphs))
	}

	sort.SliceStable(bm.Methods, func(i, j int) bool {
		if bm.Methods[i].Similarity != bm.Methods[j].Similarity {
			return bm.Methods[i].Similarity > bm.Methods[j].Similarity
		}
		return bm.Methods[i].MalwareOffset < bm.Methods[j].MalwareOffset
	})
	return bm
}
