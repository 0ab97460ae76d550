package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sumd/internal/common/fsutil"
	"sumd/internal/weights"
)

func newReconstructCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "reconstruct [model-dir]",
		Short:   "Combine model_part shards into the cached consolidated weights",
		Example: "  sumd reconstruct ~/models/summarizer",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.cfg.ModelDir
			if len(args) == 1 {
				dir = args[0]
			}
			r, err := newReconstructor(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			path, err := r.Resolve(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newSplitCmd(opts *options) *cobra.Command {
	var (
		n      int
		outDir string
	)
	cmd := &cobra.Command{
		Use:     "split <weights-file>",
		Short:   "Cut a consolidated weight file into N model_part shards",
		Example: "  sumd split model.safetensors -n 4 -o ./shards",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := fsutil.ExpandHome(args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Dir(src)
			}
			paths, err := weights.Split(src, n, outDir, opts.cfg.WeightsExt)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			opts.log.Info().Int("shards", len(paths)).Str("dir", outDir).Msg("weights split")
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "shards", "n", 2, "Number of shards")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to the source directory)")
	return cmd
}
