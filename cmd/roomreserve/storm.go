package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"roomreserve/internal/model"
)

// stormCommand fires N concurrent admission requests at one tuple of a
// running server and reports the admitted / slot-full / other split. Handy
// for demonstrating the capacity invariant against a live deployment: with
// N > capacity on a fresh tuple, exactly capacity attempts are admitted.
func stormCommand() *cli.Command {
	return &cli.Command{
		Name:  "storm",
		Usage: "fire concurrent reservation attempts at one slot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server base URL"},
			&cli.StringFlag{Name: "token", Required: true, Usage: "bearer token for the requester"},
			&cli.StringFlag{Name: "room", Required: true, Usage: "room id"},
			&cli.StringFlag{Name: "date", Required: true, Usage: "date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "slot", Required: true, Usage: "slot label"},
			&cli.IntFlag{Name: "n", Value: 20, Usage: "number of concurrent attempts"},
		},
		Action: runStorm,
	}
}

func runStorm(c *cli.Context) error {
	var (
		base  = c.String("url")
		token = c.String("token")
		n     = c.Int("n")
	)
	body, err := json.Marshal(model.ReserveRequest{
		RoomID: c.String("room"),
		Date:   c.String("date"),
		Slot:   c.String("slot"),
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	outcomes := make([]model.AdmissionOutcome, n)

	g, ctx := errgroup.WithContext(c.Context)
	start := time.Now()
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			outcomes[i] = attempt(ctx, client, base, token, body, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	admitted, full, other := 0, 0, 0
	for _, out := range outcomes {
		switch {
		case out.Admitted:
			admitted++
		case out.Err == nil:
			full++
		default:
			other++
			fmt.Printf("  %s: %v\n", out.Requester, out.Err)
		}
	}
	fmt.Printf("%d attempts in %s: %d admitted, %d slot-full, %d errors\n",
		n, elapsed.Round(time.Millisecond), admitted, full, other)
	return nil
}

// attempt posts one reservation. Admitted on 201; a 409 is the expected
// slot-full outcome; anything else is an error.
func attempt(ctx context.Context, client *http.Client, base, token string, body []byte, i int) model.AdmissionOutcome {
	out := model.AdmissionOutcome{Requester: fmt.Sprintf("attempt-%d", i)}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/reservations", bytes.NewReader(body))
	if err != nil {
		out.Err = err
		return out
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		out.Admitted = true
	case http.StatusConflict:
		// slot full: counted, not an error
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		out.Err = fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return out
}
