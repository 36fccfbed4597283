package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/vocab"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "vocab",
		Short: "List the known tag and use case tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVocab(os.Stdout)
		},
	})
}

func runVocab(out io.Writer) error {
	if _, err := fmt.Fprintln(out, "tags:"); err != nil {
		return err
	}
	for _, t := range vocab.Tags() {
		_, _ = fmt.Fprintf(out, "  %s\n", t)
	}
	_, _ = fmt.Fprintln(out, "use cases:")
	for _, u := range vocab.UseCases() {
		_, _ = fmt.Fprintf(out, "  %s\n", u)
	}
	_, err := fmt.Fprintf(out, "unknown values are stored as %q followed by the raw text\n", vocab.CustomPrefix)
	return err
}
