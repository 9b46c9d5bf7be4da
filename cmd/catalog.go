package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/edmap/internal/catalog"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the selectable attributes in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Resolve(cfg.Catalog.Path, cfg.Catalog.LabelSet)
		if err != nil {
			return err
		}
		return writeCatalog(cmd.OutOrStdout(), cat, catalogJSON)
	},
}

func writeCatalog(w io.Writer, cat *catalog.Catalog, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cat.Attributes())
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tFORMAT\tYEAR FIELD")
	for _, a := range cat.Attributes() {
		year := a.YearField
		if year == "" {
			year = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Key, a.Label, a.Format, year)
	}
	return tw.Flush()
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(catalogCmd)
}
