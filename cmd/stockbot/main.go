package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StockBot/internal/app"
	"StockBot/pkg/config"

	"github.com/joho/godotenv"
)

type options struct {
	sender     string
	receiver   string
	refresh    int
	configPath string
}

// parseArgs reads the command line. Missing required flags are usage errors.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("stockbot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.sender, "sender", "", "Sender email address for the Mail app (required)")
	fs.StringVar(&opts.receiver, "receiver", "", "Receiver email address for the Mail app (required)")
	fs.IntVar(&opts.refresh, "refresh-time", 0, "Interval in seconds between stock checks (default 15)")
	fs.StringVar(&opts.configPath, "config", "config.yml", "Path to the YAML config file")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.sender == "" || opts.receiver == "" {
		fs.Usage()
		return opts, errors.New("--sender and --receiver are required")
	}
	return opts, nil
}

// apply lets flags override the config file.
func (o options) apply(cfg *config.Config) {
	cfg.Notifier.Sender = o.sender
	cfg.Notifier.Receiver = o.receiver
	if o.refresh > 0 {
		cfg.Monitor.RefreshSeconds = o.refresh
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	opts, err := parseArgs(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("Usage error: %v", err)
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	cfg.ApplyEnv()
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	defer application.Close()

	err = application.Run(ctx)
	code := app.ExitCode(err)
	switch {
	case code == 130:
		log.Println("Interrupted. Closing browser.")
	case code != 0:
		log.Printf("Stock monitor failed: %v", err)
	}
	return code
}
