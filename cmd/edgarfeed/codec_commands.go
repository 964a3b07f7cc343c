package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"edgarfeed/internal/uuencode"
)

func newUUEncodeCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:         "uuencode FILE",
		Short:       "Encode a file the way EDGAR embeds binary documents",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			_, err = io.WriteString(cmd.OutOrStdout(), uuencode.Encode(data, name))
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "File name for the begin line (default: base name of FILE)")
	return cmd
}

func newUUDecodeCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:         "uudecode FILE",
		Short:       "Decode a UUENCODE block",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			data, err := uuencode.Decode(string(text))
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write decoded bytes to this path instead of stdout")
	return cmd
}
