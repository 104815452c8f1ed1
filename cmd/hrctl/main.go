package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/internal/config"
	"github.com/guarzo/hrapi/internal/logging"
	"github.com/guarzo/hrapi/modules/auth"
	"github.com/guarzo/hrapi/modules/hr"
	"github.com/guarzo/hrapi/modules/session"
)

const appname = "hrctl"

// app is everything a command needs, wired from configuration.
type app struct {
	cfg      *config.Config
	store    session.Store
	sessions auth.SessionService
	hr       hr.HrService
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet(appname, flag.ContinueOnError)
	configPath := global.String("config", "", "path to a YAML config file (default $HRAPI_CONFIG)")
	logLevel := global.String("log-level", "", "override the configured log level")
	global.Usage = usage(global)
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	_ = godotenv.Load(".env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		global.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Err(err).Msg("failed to start")
		return 1
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			log.Err(err).Msg("failed to close session store")
		}
	}()

	err = cmd.run(ctx, a, rest)
	total, succeeded, failed := hr.Stats()
	log.Debug().Int64("total", total).Int64("success", succeeded).Int64("failed", failed).Msg("hr api calls")
	if err != nil {
		return report(err)
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	httpClient := common.NewHRHttpClient(cfg.API.UserAgent, &http.Client{},
		common.WithTimeout(cfg.API.Timeout),
		common.WithMaxAttempts(cfg.API.MaxAttempts),
	)
	authClient := auth.NewClient(cfg.API.BaseURL, httpClient)
	mgr := session.NewManager(store)
	fetcher := auth.NewFetcher(cfg.API.BaseURL, httpClient, authClient, mgr, auth.SessionExpiredFunc(notifyExpired))

	return &app{
		cfg:      cfg,
		store:    store,
		sessions: auth.NewSessionService(authClient, mgr),
		hr:       hr.NewHrService(hr.NewHrClient(fetcher, httpClient)),
	}, nil
}

// notifyExpired is the terminal's version of the blocking notice and
// redirect to the login screen.
func notifyExpired(_ context.Context, _ string) {
	fmt.Fprintln(os.Stderr, auth.SessionExpiredNotice)
	fmt.Fprintf(os.Stderr, "Run `%s login -email <email>` to sign in again.\n", appname)
}

// report prints err and picks the exit code.
func report(err error) int {
	var verr *hr.ValidationError
	var httpErr *common.HTTPError
	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		// flag package already printed the problem
		return 2
	case errors.Is(err, common.ErrSessionExpired):
		// notice already shown
		return 3
	case errors.As(err, &verr):
		for _, f := range verr.Fields {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f.Field, f.Message)
		}
		return 1
	case errors.Is(err, common.ErrNotAuthenticated):
		fmt.Fprintf(os.Stderr, "not logged in, run `%s login`\n", appname)
		return 3
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusForbidden:
		fmt.Fprintln(os.Stderr, "permission denied")
		return 1
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [global flags] <command> [flags]\n\nCommands:\n", appname)
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-20s %s\n", name, commands[name].summary)
		}
		fmt.Fprintln(out, "\nGlobal flags:")
		fs.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment:")
		fmt.Fprintln(out, config.Usage())
	}
}
