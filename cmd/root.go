package cmd

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/promptmarket/gallery/internal/app"
	"github.com/promptmarket/gallery/internal/config"
	"github.com/promptmarket/gallery/internal/storage"
)

// cli carries the state shared by every subcommand once the root command has
// loaded configuration.
type cli struct {
	configPath string
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Prompt gallery with AI image generation and storage recovery",
		Long: `Gallery serves a catalog of image prompt templates and renders them
with a generative image model.

Generated images are persisted locally. The recover commands inspect every
storage location for images written by older versions and import them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			slog.SetDefault(newLogger(cfg.Log, cmd.ErrOrStderr()))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config file (default: search the config directory)")

	cmd.AddCommand(newServeCmd(c))
	cmd.AddCommand(newAutogenCmd(c))
	cmd.AddCommand(newGenerateCmd(c))
	cmd.AddCommand(newImagesCmd(c))
	cmd.AddCommand(newCharactersCmd(c))
	cmd.AddCommand(newPremiumCmd(c))
	cmd.AddCommand(newRecoverCmd(c))
	cmd.AddCommand(newCatalogCmd(c))

	return cmd
}

// openApp opens the stores and catalog. Callers must Close the result.
func (c *cli) openApp(cmd *cobra.Command) (*app.App, error) {
	return app.Open(cmd.Context(), c.cfg)
}

func (c *cli) localStorePath() string {
	return filepath.Join(c.cfg.Storage.DataDir, storage.LocalStoreName)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
