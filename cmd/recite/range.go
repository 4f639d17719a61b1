package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rangeCmd = &cobra.Command{
	Use:     "range <from> <to>",
	Short:   "Print the expected words of an ayah range",
	Example: "  recite range 1:1 1:7",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRangeArgs(args)
		if err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}

		rng, err := e.builder.Build(from, to)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if rng.Empty() {
			fmt.Fprintln(out, "no recitable words in range")
			return nil
		}

		if page, ok := e.layout.PageOf(from); ok {
			fmt.Fprintf(out, "%s-%s starts on page %d, %d words\n\n", from, to, page, rng.Len())
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tPAGE\tAYAH\tWORD\tNORMALIZED")
		for _, word := range rng.Words {
			fmt.Fprintf(w, "%d\t%d\t%d:%d\t%s\t%s\n", word.Index, word.Page, word.Sura, word.Aya, word.Original, word.Normalized)
		}
		return w.Flush()
	},
}
