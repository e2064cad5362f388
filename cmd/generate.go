package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptmarket/gallery/internal/generation"
	"github.com/promptmarket/gallery/internal/images"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		subject     string
		characterID string
		reference   string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "generate <item-id>",
		Short: "Generate and save an image for one catalog item",
		Long: `Renders the item's prompt template with an optional subject, character
and reference image, then stores the result as the item's thumbnail.

The reference may be a file path, an http(s) URL or a data URI.`,
		Example: `  # Render item 42 with the default subject
  gallery generate 42

  # Put a saved character into the scene and write the image to disk
  gallery generate 42 --character char_1 --out item42.png

  # Use a photo as reference
  gallery generate 42 --subject "me, smiling" --reference ./me.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			item, ok := a.Catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("catalog item %q not found", args[0])
			}

			opts := generation.Options{Subject: subject, CharacterID: characterID}
			if reference != "" {
				ref, err := a.Fetcher.Load(cmd.Context(), reference)
				if err != nil {
					return fmt.Errorf("%w: %w", generation.ErrInvalidReference, err)
				}
				opts.ReferenceImage = ref.DataURI()
			}

			payload, err := a.Generator.GenerateForItem(cmd.Context(), item, opts)
			if payload == "" {
				return err
			}
			if err != nil {
				slog.Error("Generated image could not be saved", "id", item.ID, "err", err)
			}

			if out != "" {
				_, data, decodeErr := images.DecodeDataURI(payload)
				if decodeErr != nil {
					return decodeErr
				}
				if writeErr := os.WriteFile(out, data, 0644); writeErr != nil {
					return fmt.Errorf("failed to write %s: %w", out, writeErr)
				}
				slog.Info("Image written", "path", out, "bytes", len(data))
			}

			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved image for %s (%s)\n", item.ID, item.Title)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject substituted into the template")
	cmd.Flags().StringVar(&characterID, "character", "", "Character to place in the scene")
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Reference image (path, URL or data URI)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the image to this file")

	return cmd
}
