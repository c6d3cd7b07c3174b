package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/phrasebook"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/sqlite"
)

func newPublishCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <json>",
		Short: "Validate a phrase-book document and store it in the configured source",
		Long: `Decodes the document to make sure every record is well formed, then
writes it to the Redis key or SQL table named by the source section of the
config file. The server picks it up on its next start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.ConfigFile)
			if err != nil {
				return err
			}
			document, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runPublish(cmd.Context(), cfg, document)
		},
	}
	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "config file (PB_* environment variables also apply)")
	return cmd
}

func runPublish(ctx context.Context, cfg *config.Config, document []byte) error {
	ds, err := phrasebook.Decode(bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}

	pub, closeFn, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := pub.Publish(ctx, document); err != nil {
		return err
	}
	logger.WithComponent("publish").Info("phrase book published",
		"source", cfg.Source.Kind,
		"records", ds.Len(),
		"bytes", len(document),
	)
	return nil
}

func openPublisher(ctx context.Context, cfg *config.Config) (loader.Publisher, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return loader.NewRedisSource(client, cfg.Source.RedisKey), func() { client.Close() }, nil
	case config.SourcePostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src := loader.NewSQLSource(client.DB, cfg.Source.Name)
		if err := src.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return src, func() { client.Close() }, nil
	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		src := loader.NewSQLSource(db, cfg.Source.Name)
		if err := src.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return src, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("source kind %q cannot be published to; use redis, postgres or sqlite", cfg.Source.Kind)
	}
}
