package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"edgarfeed/internal/submission"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a single submission file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			res, err := submission.ParseFile(cmd.Context(), args[0], submission.Options{Logger: logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(res.Record, "", "  ")
				if err != nil {
					return fmt.Errorf("encode record: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Accession: %s\n", res.Accession)
			fmt.Fprintf(out, "Form type: %s\n", res.FormType)
			fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(res.Bytes)))
			if len(res.Documents) == 0 {
				fmt.Fprintln(out, "No documents")
				return nil
			}
			rows := make([][]string, 0, len(res.Documents))
			for _, doc := range res.Documents {
				rows = append(rows, []string{
					strconv.Itoa(doc.Index),
					doc.Sequence,
					doc.Filename,
					yesNo(doc.Binary),
					humanize.Bytes(uint64(doc.RawSize)),
					humanize.Bytes(uint64(len(doc.Data))),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Sequence", "Filename", "Binary", "Raw", "Decoded"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the header record as JSON")
	return cmd
}
