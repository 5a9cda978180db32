package main

import (
	"github.com/urfave/cli/v2"

	"roomreserve/internal/database"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// demoRooms is the demo catalog: a couple of study rooms and a lab sharing
// the same weekday slot grid.
func demoRooms() []model.CreateRoomRequest {
	slots := []string{"09:00-10:00", "10:00-11:00", "11:00-12:00", "14:00-15:00", "15:00-16:00"}
	return []model.CreateRoomRequest{
		{Name: "Study Room A", RoomType: "Study Room", Capacity: 6, Slots: slots},
		{Name: "Computer Lab 1", RoomType: "Lab", Capacity: 20, Slots: slots},
		{Name: "Study Room B", RoomType: "Study Room", Capacity: 4, Slots: slots},
	}
}

func seedCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.BoolFlag{Name: "log-json", EnvVars: []string{"LOG_JSON"}},
	}, dbFlags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "load the demo room catalog into postgres",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := configFromCLI(c)
			logger := newLogger(cfg.LogJSON)
			ctx := c.Context

			pool, err := database.NewPool(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}

			rooms := repository.NewRoomRepository(pool)
			for _, req := range demoRooms() {
				room, err := rooms.Create(ctx, req)
				if err != nil {
					return err
				}
				logger.Info("seeded room", "id", room.ID, "name", room.Name, "capacity", room.Capacity)
			}
			return nil
		},
	}
}
