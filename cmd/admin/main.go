package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/univio-api/internal/app"
	"github.com/univio-api/internal/application/registration"
	"github.com/univio-api/internal/config"
	"github.com/univio-api/internal/infrastructure/postgres"
	"github.com/univio-api/internal/logger"
)

var flagEmail *cli.StringFlag = &cli.StringFlag{
	Name:     "email",
	Usage:    "Account or verification email address",
	Required: true,
}

var flagConfirmEmail *cli.BoolFlag = &cli.BoolFlag{
	Name:  "confirm-email",
	Value: true,
	Usage: "Also mark the account email as confirmed",
}

var flagKey *cli.StringFlag = &cli.StringFlag{
	Name:     "key",
	Usage:    "Archive object key, as logged when the mail was sent",
	Required: true,
}

var flagLogLevel *cli.StringFlag = &cli.StringFlag{
	Name:  "log-level",
	Value: "warn",
	Usage: "Log level written to stderr",
}

func main() {
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "admin",
		Usage: "UniVio account and verification maintenance",
		Flags: []cli.Flag{
			flagLogLevel,
		},
		Before: func(cCtx *cli.Context) error {
			logger.SetupDefault(os.Stderr, cCtx.String(flagLogLevel.Name))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "repair",
				Usage: "Create any missing Record Store rows for an existing account",
				Flags: []cli.Flag{
					flagEmail,
					flagConfirmEmail,
				},
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, func(a *app.App) error {
						report, err := a.Registration.Repair(cCtx.Context, cCtx.String(flagEmail.Name), registration.RepairOptions{
							ConfirmEmail: cCtx.Bool(flagConfirmEmail.Name),
						})
						if err != nil {
							return err
						}
						if err := printJSON(report); err != nil {
							return err
						}
						if failed := report.Failed(); len(failed) > 0 {
							return cli.Exit(fmt.Sprintf("steps failed: %v", failed), 2)
						}
						return nil
					})
				},
			},
			{
				Name:  "cleanup",
				Usage: "Sweep expired verification state once",
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, func(a *app.App) error {
						removed, err := a.Challenges.Cleanup(cCtx.Context)
						fmt.Printf("removed %d expired codes\n", removed)
						return err
					})
				},
			},
			{
				Name:  "purge",
				Usage: "Delete every verification record and issuance for an address",
				Flags: []cli.Flag{
					flagEmail,
				},
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, func(a *app.App) error {
						return a.Challenges.Purge(cCtx.Context, cCtx.String(flagEmail.Name))
					})
				},
			},
			{
				Name:  "mail-show",
				Usage: "Print an archived outbound mail",
				Flags: []cli.Flag{
					flagKey,
				},
				Action: func(cCtx *cli.Context) error {
					return withApp(cCtx, func(a *app.App) error {
						if a.Archive == nil {
							return errors.New("MAIL_ARCHIVE_BUCKET is not set")
						}
						body, err := a.Archive.Download(cCtx.Context, cCtx.String(flagKey.Name))
						if err != nil {
							return err
						}
						defer body.Close()
						_, err = io.Copy(os.Stdout, body)
						return err
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "Apply catalog migrations",
				Action: func(cCtx *cli.Context) error {
					cfg := config.Load()
					if cfg.DatabaseURL == "" {
						return errors.New("DATABASE_URL is not set")
					}
					return postgres.RunMigrations(cfg.DatabaseURL)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withApp(cCtx *cli.Context, fn func(*app.App) error) error {
	a, err := app.New(cCtx.Context, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
