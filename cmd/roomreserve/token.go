package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"roomreserve/internal/auth"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a signed caller token for local use",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "caller id (token subject)"},
			&cli.StringFlag{Name: "name", Usage: "display name"},
			&cli.BoolFlag{Name: "admin", Usage: "grant the admin role"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
			&cli.StringFlag{Name: "auth-secret", Value: "dev-secret", EnvVars: []string{"AUTH_SECRET"}},
		},
		Action: func(c *cli.Context) error {
			token, err := auth.Mint(
				[]byte(c.String("auth-secret")),
				auth.Caller{
					ID:    c.String("user"),
					Name:  c.String("name"),
					Admin: c.Bool("admin"),
				},
				c.Duration("ttl"),
			)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
