package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/lims-results-import/internal/instruments"
)

// instrumentsCmd lists the registered instrument interfaces.
var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List the supported instruments",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVENDOR\tTITLE\tATTACHMENT TYPE")
		for _, def := range instruments.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Key, def.Vendor, def.Title, def.AttachmentFileType)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(instrumentsCmd)
}
