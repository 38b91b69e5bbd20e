// Command gographer scores every function of a sample binary against the
// functions of reference binaries by control-flow-graph similarity and
// reports the ranked matches.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gographer/internal/cfgexport"
	"gographer/internal/grapher"
	"gographer/internal/loader"
	"gographer/internal/render"
	"gographer/internal/similarity"
)

const (
	exitOK          = 0
	exitUnsupported = 1
	exitIO          = 2
	exitUsage       = 64
)

type config struct {
	output    string
	threshold float64
	filter    string
	ratio     float64
	tuning    string
	dotDir    string
	progress  bool
}

func newRootCommand(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gographer [flags] <sample> [reference]...",
		Short: "Match functions in a suspect binary against known clean libraries",
		Long: `gographer lifts each binary into per-function control flow graphs and
scores every sample function against every reference function. The output is
a ranked report: one entry per reference binary, holding the per-function
matches at or above the threshold.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, args)
		},
	}

	cmd.Flags().StringVarP(&cfg.output, "output", "o", "", "write the JSON report to `file` instead of printing a tree")
	cmd.Flags().Float64VarP(&cfg.threshold, "threshold", "t", 0.0, "minimum similarity for a method match (0.0-1.0)")
	cmd.Flags().StringVarP(&cfg.filter, "filter", "f", "", "only compare sample functions whose name matches `regex`")
	cmd.Flags().Float64VarP(&cfg.ratio, "ratio", "r", 1.0, "compare only the first ratio*N sample functions (0.0-1.0]")
	cmd.Flags().StringVar(&cfg.tuning, "tuning", "", "YAML `file` overriding the engine constants")
	cmd.Flags().StringVar(&cfg.dotDir, "dot", "", "write per-function CFG DOT files for the sample to `dir`")
	cmd.Flags().BoolVar(&cfg.progress, "progress", false, "report per-binary progress on stderr")
	return cmd
}

func run(cfg *config, args []string) error {
	params := similarity.DefaultParams()
	if cfg.tuning != "" {
		var err error
		params, err = grapher.LoadTuning(cfg.tuning)
		if err != nil {
			var perr *fs.PathError
			if errors.As(err, &perr) {
				return &loader.IOError{Path: cfg.tuning, Err: err}
			}
			return err
		}
	}

	g, err := grapher.NewWithParams(cfg.threshold, cfg.progress, params)
	if err != nil {
		return err
	}

	inputs := make([]grapher.Input, len(args))
	for i, path := range args {
		inputs[i] = grapher.Input{Name: filepath.Base(path), Path: path}
	}
	graphs, err := g.GenerateGraphs(inputs)
	if err != nil {
		return err
	}
	sample, refs := graphs[0], graphs[1:]

	if cfg.filter != "" {
		if sample, err = sample.FilterSymbol(cfg.filter); err != nil {
			return err
		}
	}
	if cfg.ratio != 1.0 {
		if sample, err = sample.Subset(cfg.ratio); err != nil {
			return err
		}
	}

	if cfg.dotDir != "" {
		if err := writeDOT(cfg.dotDir, sample); err != nil {
			return err
		}
	}

	rep := g.Compare(sample, refs)

	if cfg.output == "" {
		render.Tree(os.Stdout, rep)
		return nil
	}
	data, err := rep.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.output, data, 0644); err != nil {
		return &loader.IOError{Path: cfg.output, Err: err}
	}
	return nil
}

// writeDOT dumps one DOT file per sample function, named by entry offset to
// keep colliding symbol names apart.
func writeDOT(dir string, d *grapher.Disassembly) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &loader.IOError{Path: dir, Err: err}
	}
	for _, fg := range d.Graphs {
		path := filepath.Join(dir, fmt.Sprintf("%x.dot", fg.Entry))
		if err := os.WriteFile(path, []byte(cfgexport.DOT(fg)), 0644); err != nil {
			return &loader.IOError{Path: path, Err: err}
		}
	}
	return nil
}

func exitCode(err error) int {
	var unsupported *loader.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return exitUnsupported
	}
	var ioErr *loader.IOError
	if errors.As(err, &ioErr) {
		return exitIO
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitIO
	}
	// Bad flags, bad arguments, bad thresholds.
	return exitUsage
}

func main() {
	cfg := &config{}
	cmd := newRootCommand(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}
