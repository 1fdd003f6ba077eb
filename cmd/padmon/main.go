package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/gamepad"
	"github.com/flarexio/gamepad/sdlhost"
)

const (
	Version string = "0.0.0"
)

func main() {
	app := &cli.App{
		Name:    "padmon",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Specifies the working directory for the gamepad monitor.",
				EnvVars: []string{"PADMON_PATH"},
			},
			&cli.Float64Flag{
				Name:    "deadzone",
				Usage:   "Minimum axis magnitude treated as intentional input.",
				EnvVars: []string{"PADMON_DEADZONE"},
			},
			&cli.IntFlag{
				Name:    "interval",
				Usage:   "Poll interval in milliseconds.",
				EnvVars: []string{"PADMON_INTERVAL"},
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(cli *cli.Context) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.flarex/gamepad"
	}

	cfg := gamepad.DefaultConfig()

	if f, err := os.Open(path + "/config.yaml"); err == nil {
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return err
		}
	}

	if cli.IsSet("deadzone") {
		cfg.Deadzone = cli.Float64("deadzone")
	}

	if cli.IsSet("interval") {
		cfg.PollInterval = time.Duration(cli.Int("interval")) * time.Millisecond
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := sdlhost.New()

	hostErr := make(chan error, 1)
	go func() {
		hostErr <- host.Run(ctx)
	}()

	svc, err := gamepad.NewService(cfg, host)
	if err != nil {
		return err
	}

	svc = gamepad.LoggingMiddleware(log)(svc)
	defer svc.Close()

	go monitor(svc)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sign := <-quit:
		log.Info("graceful shutdown", zap.String("signal", sign.String()))
		return nil
	case err := <-hostErr:
		return err
	}
}

func monitor(svc gamepad.Service) {
	for update := range svc.Updates() {
		fmt.Printf("\r\033[K%s", format(update))
	}
}

func format(update gamepad.Update) string {
	if !update.Connected {
		return "no gamepad connected"
	}

	slots := make([]int, 0, len(update.Gamepads))
	for slot := range update.Gamepads {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	var sb strings.Builder
	for _, slot := range slots {
		if sb.Len() > 0 {
			sb.WriteString("  |  ")
		}

		fmt.Fprintf(&sb, "[%d] %s:", slot, update.Gamepads[slot].ID)

		pressed := make([]int, 0)
		for button, state := range update.Buttons[slot] {
			if state.Pressed {
				pressed = append(pressed, button)
			}
		}
		sort.Ints(pressed)

		for _, button := range pressed {
			sb.WriteString(" " + gamepad.ButtonLabel(button))
		}

		active := make([]int, 0)
		for axis, v := range update.Axes[slot] {
			if v != 0 {
				active = append(active, axis)
			}
		}
		sort.Ints(active)

		for _, axis := range active {
			fmt.Fprintf(&sb, " %s=%+.4f", gamepad.AxisLabel(axis), update.Axes[slot][axis])
		}
	}

	return sb.String()
}
