package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/model"
)

var breaksCmd = &cobra.Command{
	Use:   "breaks",
	Short: "Print the natural-breaks thresholds for each attribute",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "breaks", false)
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := env.Loader.LoadRows(ctx)
		if err != nil {
			return err
		}
		opts, err := cfg.ClassifyOptions()
		if err != nil {
			return err
		}
		writeBreaks(cmd.OutOrStdout(), env.Catalog, rows, opts)
		return nil
	},
}

// writeBreaks prints one line per attribute. Attributes that cannot be
// classified are listed with the reason instead of thresholds.
func writeBreaks(w io.Writer, cat *catalog.Catalog, rows []model.RegionRecord, opts classify.Options) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tVALUES\tTHRESHOLDS")
	for _, a := range cat.Attributes() {
		n := len(classify.Values(rows, a.Key))
		scale, err := classify.BuildColorScale(rows, a.Key, opts)
		switch {
		case errors.Is(err, classify.ErrInsufficientData):
			fmt.Fprintf(tw, "%s\t%d\tinsufficient data\n", a.Key, n)
		case err != nil:
			fmt.Fprintf(tw, "%s\t%d\terror: %v\n", a.Key, n, err)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Key, n, joinFloats(scale.Thresholds))
		}
	}
	_ = tw.Flush()
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(breaksCmd)
}
