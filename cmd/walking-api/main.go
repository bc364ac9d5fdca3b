// Package main is the walking-api entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/walkingapp/walking-api/handlers"
)

func main() {
	cmd := &cli.Command{
		Name:    "walking-api",
		Usage:   "WalkingApp backend API",
		Version: handlers.Version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runMigrate(ctx)
				},
			},
			{
				Name:  "token",
				Usage: "Mint and inspect access tokens with the configured secret",
				Commands: []*cli.Command{
					{
						Name:  "mint",
						Usage: "Sign an access token for local development",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "sub",
								Aliases:  []string{"s"},
								Required: true,
								Usage:    "Subject (user UUID)",
							},
							&cli.StringFlag{
								Name:    "email",
								Aliases: []string{"e"},
								Usage:   "Email claim",
							},
							&cli.DurationFlag{
								Name:  "ttl",
								Value: time.Hour,
								Usage: "Token lifetime",
							},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return runTokenMint(os.Stdout, loadTrust(), cmd.String("sub"), cmd.String("email"), cmd.Duration("ttl"))
						},
					},
					{
						Name:  "verify",
						Usage: "Verify an access token and print its identity",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "token",
								Aliases:  []string{"t"},
								Required: true,
								Usage:    "Compact serialized token",
							},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return runTokenVerify(ctx, os.Stdout, loadTrust(), cmd.String("token"))
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "walking-api: %v\n", err)
		os.Exit(1)
	}
}
