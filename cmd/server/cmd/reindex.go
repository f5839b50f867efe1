package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/search"
	"github.com/vitrin-cms/server/internal/storage/postgres"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	Long: `Push every published product, blog, event and page, in every locale,
to Meilisearch. Run it after restoring a backup or changing index settings.

Requires MEILI_URL; without it the database search fallback needs no index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.Search.MeiliURL == "" {
			return fmt.Errorf("MEILI_URL is not configured")
		}
		logger := config.NewLogger(cfg.Logging)

		locales, err := i18n.NewSet(cfg.Locales.Default, cfg.Locales.Supported)
		if err != nil {
			return fmt.Errorf("locales: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()
		repo, err := postgres.NewRepository(pool)
		if err != nil {
			return err
		}

		meili := search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliKey, logger)
		defer meili.Close()

		n, err := search.NewService(meili, repo.Search(), locales, logger).Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents\n", n)
		return nil
	},
}
