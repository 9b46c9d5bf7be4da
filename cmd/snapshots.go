package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edmap/internal/store"
)

var snapshotsName string

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored dataset snapshots, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateFor("snapshots"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snaps, err := st.ListSnapshots(ctx, snapshotsName)
		if err != nil {
			return eris.Wrap(err, "snapshots list")
		}
		if len(snaps) == 0 {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}
		formatSnapshots(cmd.OutOrStdout(), snaps)
		return nil
	},
}

func formatSnapshots(w io.Writer, snaps []store.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROWS\tCREATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.RowCount, s.CreatedAt.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func init() {
	snapshotsCmd.Flags().StringVar(&snapshotsName, "name", "", "only list snapshots with this name")
	rootCmd.AddCommand(snapshotsCmd)
}
