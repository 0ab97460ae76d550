package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sumd/internal/profile"
	"sumd/internal/summarizer"
	"sumd/pkg/types"
)

// readInput returns args joined by spaces, or stdin when the only arg is "-".
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, label string, r summarizer.Result) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	bold.Fprintf(w, "%s", label)
	fmt.Fprintf(w, " %s\n", r.Summary)
	energy := "n/a"
	if r.EnergyOK {
		energy = fmt.Sprintf("%.4f Wh", r.EnergyWh)
	}
	dim.Fprintf(w, "  %d words, %.1f ms, %s, %s", r.WordCount, r.LatencyMS, energy, r.Device)
	if r.Fallback {
		color.New(color.FgYellow).Fprint(w, ", excerpt fallback")
	}
	fmt.Fprintln(w)
}

func pct(v float64) string {
	s := fmt.Sprintf("%+.1f%%", v)
	if v > 0 {
		return color.GreenString(s)
	}
	if v < 0 {
		return color.RedString(s)
	}
	return s
}

func newSummarizeCmd(opts *options) *cobra.Command {
	var (
		optimized bool
		name      string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:     "summarize <text|->",
		Short:   "Summarize text in 10 to 15 words",
		Example: "  echo 'long text' | sumd summarize --optimized -",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if name == "" {
				name = profile.ForMode(optimized)
			}
			a, err := newApp(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.svc.Summarize(cmd.Context(), text, name)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res.Response())
			}
			printResult(cmd.OutOrStdout(), res.Profile+":", res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&optimized, "optimized", false, "Use the optimized profile instead of the baseline")
	cmd.Flags().StringVar(&name, "profile", "", "Profile name; overrides --optimized")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compare <text|->",
		Short: "Summarize with baseline and optimized profiles and report the savings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, err := newApp(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.svc.Compare(cmd.Context(), text)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return printJSON(w, c.Response())
			}
			printResult(w, "baseline: ", c.Baseline)
			printResult(w, "optimized:", c.Optimized)
			fmt.Fprintf(w, "latency reduction %s, energy reduction %s (run %s)\n",
				pct(c.LatencyReductionPct), pct(c.EnergyReductionPct), c.RunID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the comparison as JSON")
	return cmd
}

func newProfilesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := opts.cfg.ProfileSet()
			if err != nil {
				return err
			}
			out := make([]types.ProfileInfo, 0, len(set.Names()))
			for _, p := range set.List() {
				out = append(out, summarizer.ProfileInfo(p))
			}
			return printJSON(cmd.OutOrStdout(), types.ProfilesResponse{Profiles: out})
		},
	}
}

