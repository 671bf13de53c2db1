package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/plukevdh/go-keydir/cmd/flags"
	"github.com/plukevdh/go-keydir/mockdir"
)

var cliFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for the directory API",
	},
	&cli.StringFlag{
		Name:  "token-key",
		Value: "mockdir-dev-token-key",
		Usage: "key the directory signs auth tokens with",
	},
	&cli.BoolFlag{
		Name:  "seed",
		Value: true,
		Usage: "seed the standard fixture accounts",
	},
	flags.PprofFlag,
	flags.DrainSecondsFlag,
}, flags.LogFlags...)

func main() {
	app := &cli.App{
		Name:  "mockdir",
		Usage: "Serve an in-memory keydir directory for local development",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			tokenKey := cCtx.String("token-key")
			drainDuration := time.Duration(cCtx.Int64(flags.DrainSecondsFlag.Name)) * time.Second

			logger := flags.SetupLogger(cCtx)

			handler := mockdir.NewHandler(logger, []byte(tokenKey))
			if cCtx.Bool("seed") {
				if err := mockdir.SeedFixtures(handler); err != nil {
					logger.Error("Failed to seed fixture accounts", "err", err)
					return err
				}
				logger.Info("Fixture accounts seeded", "accounts", "chris, max")
			}

			cfg := &mockdir.HTTPServerConfig{
				ListenAddr:               listenAddr,
				Log:                      logger,
				EnablePprof:              cCtx.Bool(flags.PprofFlag.Name),
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}

			srv, err := mockdir.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit

			logger.Info("Shutting down")
			srv.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
