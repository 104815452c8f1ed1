package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/internal/config"
	"github.com/guarzo/hrapi/internal/logging"
	"github.com/guarzo/hrapi/modules/hrfake"
)

const appname = "hrfake"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("hrfake stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	configPath := flag.String("config", "", "path to a YAML config file (default $HRAPI_CONFIG)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config file]\n\n", appname)
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "\nEnvironment:")
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return err
	}

	displayAppname(appname)

	srv := hrfake.New(hrfake.OptionsFromConfig(cfg.Fake))
	if cfg.Fake.SeedDemo {
		if err := srv.SeedDemo(); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		log.Info().
			Str("admin", hrfake.DemoAdminEmail).
			Str("pm", hrfake.DemoPMEmail).
			Str("employee", hrfake.DemoEmployeeEmail).
			Str("password", hrfake.DemoPassword).
			Msg("demo accounts")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Fake.Addr).Msg("server listening")
		errCh <- srv.App().Listen(cfg.Fake.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-stop:
	}

	if err := srv.App().ShutdownWithTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func displayAppname(name string) {
	myFigure := figure.NewFigure(name, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
