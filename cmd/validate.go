package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edmap/internal/join"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and join both datasets and report region codes that did not match",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "validate", false)
		if err != nil {
			return err
		}
		defer env.Close()

		return runValidate(ctx, env, cmd.OutOrStdout(), validateStrict)
	},
}

// runValidate loads the datasets and prints the join report. With strict
// set, any unmatched code is an error.
func runValidate(ctx context.Context, env *appEnv, w io.Writer, strict bool) error {
	ds, err := env.Loader.Load(ctx)
	if err != nil {
		return err
	}
	writeReport(w, len(ds.Rows), len(ds.Features), ds.Report)
	if strict && ds.Report.Misses() > 0 {
		return eris.Errorf("validate: %d region codes did not join", ds.Report.Misses())
	}
	return nil
}

func writeReport(w io.Writer, rows, features int, rep join.Report) {
	fmt.Fprintf(w, "rows:         %d\n", rows)
	fmt.Fprintf(w, "features:     %d\n", features)
	fmt.Fprintf(w, "matched:      %d\n", rep.Matched)
	fmt.Fprintf(w, "geo only:     %s\n", codeList(rep.GeoOnly))
	fmt.Fprintf(w, "tabular only: %s\n", codeList(rep.TabularOnly))
}

func codeList(codes []string) string {
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ", ")
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "fail when any region code does not join")
	rootCmd.AddCommand(validateCmd)
}
