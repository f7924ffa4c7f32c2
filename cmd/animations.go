package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/ledsim/internal/animations"
)

// ListAnimations writes the registered kinds as an aligned table.
func ListAnimations(w io.Writer, reg *animations.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tDESCRIPTION")
	for _, k := range reg.Kinds() {
		fmt.Fprintf(tw, "%s\t%s\n", k.Name, k.Description)
	}
	return tw.Flush()
}

// CreateAnimationsCmd creates the animations command.
func CreateAnimationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "animations",
		Short: "List the animation kinds usable in show files",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return ListAnimations(os.Stdout, animations.Default())
		},
	}
}
