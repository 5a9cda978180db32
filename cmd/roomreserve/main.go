// roomreserve is the room slot-reservation service: a capacity-bounded
// booking engine for shared rooms, plus the admin catalog around it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "roomreserve",
		Usage: "room slot-reservation service",
		Commands: []*cli.Command{
			serveCommand(),
			seedCommand(),
			tokenCommand(),
			stormCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger.
func newLogger(json bool) *slog.Logger {
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		h = slog.NewTextHandler(os.Stderr, nil)
	}
	return slog.New(h)
}
