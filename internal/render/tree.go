// Package render prints a comparison report as a human-readable tree.
package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"gographer/internal/report"
)

// Theme holds the colors for tree rendering.
type Theme struct {
	Sample *color.Color
	Binary *color.Color
	Method *color.Color
	Score  *color.Color
	Arrow  *color.Color
	Offset *color.Color
}

// Default is the standard terminal theme. Colors degrade to plain text when
// stdout is not a terminal.
var Default = Theme{
	Sample: color.New(color.FgCyan, color.Bold),
	Binary: color.New(color.FgGreen, color.Bold),
	Method: color.New(color.FgWhite),
	Score:  color.New(color.FgYellow),
	Arrow:  color.New(color.FgHiBlack),
	Offset: color.New(color.FgHiBlack),
}

// Tree writes the report to w using the default theme.
func Tree(w io.Writer, r *report.CompareReport) {
	Default.Tree(w, r)
}

// Tree writes the report as a box-drawing tree: one branch per reference
// binary, one leaf per method match.
func (t Theme) Tree(w io.Writer, r *report.CompareReport) {
	t.Sample.Fprint(w, r.SampleName)
	fmt.Fprintln(w)

	for bi, bm := range r.Matches {
		lastBinary := bi == len(r.Matches)-1
		branch, stem := "├── ", "│   "
		if lastBinary {
			branch, stem = "└── ", "    "
		}

		fmt.Fprint(w, branch)
		t.Binary.Fprint(w, bm.Dest)
		fmt.Fprint(w, "  ")
		t.Score.Fprintf(w, "%.6f", bm.Similarity)
		fmt.Fprintln(w)

		for mi, mm := range bm.Methods {
			leaf := "├── "
			if mi == len(bm.Methods)-1 {
				leaf = "└── "
			}
			fmt.Fprint(w, stem, leaf)
			t.Method.Fprint(w, mm.OldName)
			t.Arrow.Fprint(w, " → ")
			t.Method.Fprint(w, mm.ResolvedName)
			fmt.Fprint(w, "  ")
			t.Score.Fprintf(w, "%.6f", mm.Similarity)
			fmt.Fprint(w, "  ")
			t.Offset.Fprintf(w, "[0x%x → 0x%x]", mm.MalwareOffset, mm.CleanOffset)
			fmt.Fprintln(w)
		}
	}
}
