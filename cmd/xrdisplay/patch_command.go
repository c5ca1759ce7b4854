package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xrdisplay/internal/edid"
)

func newPatchCommand() *cobra.Command {
	var tokenFlag string

	cmd := &cobra.Command{
		Use:         "patch <input> <output>",
		Short:       "Write a copy of an EDID file carrying the glasses identity block",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}

			var (
				patched []byte
				token   uuid.UUID
			)
			if value := strings.TrimSpace(tokenFlag); value != "" {
				token, err = uuid.Parse(value)
				if err != nil {
					return fmt.Errorf("parse --token: %w", err)
				}
				patched, err = edid.Patch(raw, token)
			} else {
				patched, token, err = edid.PatchWithNewToken(raw)
			}
			if err != nil {
				return fmt.Errorf("patch %s: %w", input, err)
			}

			if err := os.WriteFile(output, patched, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d bytes to %s\n", len(patched), output)
			fmt.Fprintf(out, "Identity token: %s\n", token)
			if err := edid.Validate(patched); err != nil {
				fmt.Fprintf(out, "Warning: output does not validate: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", "Identity token to embed (random when empty)")
	return cmd
}
