package main

import (
	"fmt"
	"os"
	"time"

	"dmsync/backend/internal/account"
	"dmsync/backend/internal/auth"
	"dmsync/backend/internal/config"
	"dmsync/backend/internal/storage"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, _ := config.Load()

	app := &cli.App{
		Name:  "admin",
		Usage: "operator commands for the dmsync backend",
		Commands: []*cli.Command{
			{
				Name:      "token",
				Usage:     "issue a signed bearer token for a subject",
				ArgsUsage: "<subject>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
				},
				Action: func(c *cli.Context) error {
					subject := c.Args().First()
					if subject == "" {
						return cli.Exit("usage: admin token <subject>", 1)
					}
					token, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(subject, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
			{
				Name:      "create-user",
				Usage:     "register a user and its profile",
				ArgsUsage: "<subject> <email>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "display name"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: admin create-user <subject> <email> [--name NAME]", 1)
					}

					db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
					if err != nil {
						return fmt.Errorf("failed to connect database: %w", err)
					}
					store := storage.NewStorageService(db)
					if err := store.Migrate(); err != nil {
						return err
					}

					var displayName *string
					if c.IsSet("name") {
						name := c.String("name")
						displayName = &name
					}

					// No redis needed: user creation never touches ephemeral state.
					accounts := account.NewService(store, nil, zap.NewNop())
					user, err := accounts.CreateUser(c.Context, c.Args().Get(0), c.Args().Get(1), displayName)
					if err != nil {
						return err
					}
					fmt.Printf("User %s created.\n", user.ID)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
