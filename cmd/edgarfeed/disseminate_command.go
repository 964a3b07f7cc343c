package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"edgarfeed/internal/disseminate"
	"edgarfeed/internal/workflow"
)

func newDisseminateCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var upload bool

	cmd := &cobra.Command{
		Use:   "disseminate ACCESSION",
		Short: "Rebuild a dissemination file from stored records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context(), workflow.WithStore(), workflow.WithBlobs())
			if err != nil {
				return err
			}
			defer rt.Close()

			builder := disseminate.New(rt.Store, rt.Blobs, rt.Logger)
			res, err := builder.Build(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath == "" && !upload {
				fmt.Fprint(out, res.Text)
				return nil
			}
			key, err := builder.Publish(cmd.Context(), res, outputPath, upload)
			if err != nil {
				return err
			}
			if outputPath != "" {
				fmt.Fprintf(out, "Wrote %s\n", outputPath)
			}
			if key != "" {
				fmt.Fprintf(out, "Uploaded %s\n", key)
			}
			if len(res.MissingBodies) > 0 {
				seqs := make([]string, 0, len(res.MissingBodies))
				for _, seq := range res.MissingBodies {
					seqs = append(seqs, strconv.Itoa(seq))
				}
				fmt.Fprintf(out, "Documents without stored bodies: %s\n", strings.Join(seqs, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the rebuilt file to this path")
	cmd.Flags().BoolVar(&upload, "upload", false, "Store the rebuilt file in the blob store")
	return cmd
}
