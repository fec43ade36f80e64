package main

import (
	"context"
	"log"
	"time"

	"storefront/auth"
	"storefront/config"
	"storefront/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var admin string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create collection indexes and optionally seed an admin",
		Long: `Create the unique and TTL indexes every collection relies on.

Examples:
  storefront migrate
  storefront migrate --admin root:changeme123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Printf("indexes ready on %s", cfg.MongoDB)

			if admin == "" {
				return nil
			}
			if err := auth.SeedAdmin(ctx, db.NewAdminStore(store), admin); err != nil {
				return err
			}
			log.Printf("admin account saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "", "create or reset an admin account, as username:password")
	return cmd
}
