package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"StockBot/internal/database"
	"StockBot/internal/monitor"
	"StockBot/internal/notifier"
	"StockBot/internal/scraper"
	"StockBot/internal/scraper/browser"
	"StockBot/internal/session"
	"StockBot/internal/urllist"
	"StockBot/pkg/config"
	"StockBot/utils"
)

var (
	// ErrNoURLs means the URL file holds no product URLs.
	ErrNoURLs = errors.New("no product urls specified")
	// ErrNoValidPages means every URL failed to load or answered with status >= 400.
	ErrNoValidPages = errors.New("no valid product pages to monitor")
)

// Browser is everything the run needs from the browser backend.
type Browser interface {
	scraper.Opener
	session.Jar
	Close() error
}

// LaunchFunc starts a browser.
type LaunchFunc func(browserConf config.BrowserConfig, affordanceConf config.AffordanceConfig) (Browser, error)

func launchRod(browserConf config.BrowserConfig, affordanceConf config.AffordanceConfig) (Browser, error) {
	b, err := browser.Launch(browserConf, affordanceConf)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// App is the main application structure holding all dependencies.
type App struct {
	Config *config.Config
	// Repo is nil when the history is disabled or could not be opened.
	Repo *database.DBRepository

	launch LaunchFunc
	runner notifier.CommandRunner
	memory utils.MemoryProbe
	in     io.Reader
	out    io.Writer
}

// Option customizes an App.
type Option func(*App)

// WithLauncher replaces the rod browser.
func WithLauncher(fn LaunchFunc) Option {
	return func(a *App) { a.launch = fn }
}

// WithCommandRunner replaces the osascript runner of the mail channel.
func WithCommandRunner(r notifier.CommandRunner) Option {
	return func(a *App) { a.runner = r }
}

// WithMemoryProbe replaces the gopsutil memory reading.
func WithMemoryProbe(p utils.MemoryProbe) Option {
	return func(a *App) { a.memory = p }
}

// WithStdio sets where the manual login prompt reads from and writes to.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = in
		a.out = out
	}
}

// New creates a new application instance. A history database that cannot be
// opened is logged and the run continues without it.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		Config: cfg,
		launch: launchRod,
		memory: utils.SystemMemory,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if !cfg.History.Disabled && cfg.History.DBPath != "" {
		repo, err := database.InitDB(cfg.History.DBPath)
		if err != nil {
			log.Printf("WARN: Run history disabled: %v", err)
		} else {
			a.Repo = repo
		}
	}
	return a
}

// Close releases the history database.
func (a *App) Close() {
	if a.Repo != nil {
		a.Repo.Close()
	}
}

// Run executes one monitoring session: load URLs, log in, open pages and poll
// until every item is in the cart.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config
	log.Println("--- Starting Stock Monitor ---")

	urls, err := urllist.Load(cfg.Monitor.URLFile)
	if err != nil {
		return err
	}
	urls = utils.UniqueStrings(urls)
	if len(urls) == 0 {
		log.Printf("No product URLs specified in '%s'. Exiting.", cfg.Monitor.URLFile)
		return ErrNoURLs
	}
	log.Printf("Loaded %d product URLs from '%s'.", len(urls), cfg.Monitor.URLFile)
	utils.CheckTabBudget(a.memory, len(urls), cfg.Browser.TabMemoryMB)

	b, err := a.launch(cfg.Browser, cfg.Affordance)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("WARN: Could not close browser: %v", err)
		}
	}()

	store := session.NewStore(cfg.Monitor.SessionFile)
	provider := session.Select(store, cfg.Site.HomeURL, cfg.Site.LoginURL, a.in, a.out)
	if err := provider.Prepare(ctx, b); err != nil {
		return fmt.Errorf("session setup failed: %w", err)
	}

	channels := a.buildNotifier()
	log.Printf("Notification channels: %v", channels.Channels())

	var opts []monitor.Option
	var runID string
	if a.Repo != nil {
		run, err := a.Repo.StartRun(cfg.Notifier.Sender, cfg.Notifier.Receiver, cfg.Monitor.RefreshSeconds, len(urls))
		if err != nil {
			log.Printf("WARN: Could not record run start: %v", err)
		} else {
			runID = run.ID
			opts = append(opts, monitor.WithRecorder(a.Repo.Recorder(runID)))
			log.Printf("Recording history for run %s", runID)
		}
	}

	mon := monitor.New(b, channels, cfg.RefreshInterval(), opts...)
	defer mon.CloseAll()

	monitored, err := mon.Open(ctx, urls)
	if err == nil && monitored == 0 {
		log.Println("No valid product pages to monitor. Exiting.")
		err = ErrNoValidPages
	}
	if err == nil {
		log.Printf("Monitoring %d product pages every %d seconds.", monitored, int(mon.Interval().Seconds()))
		err = mon.Run(ctx)
	}

	a.finishRun(runID, err == nil)
	return err
}

func (a *App) finishRun(runID string, completed bool) {
	if a.Repo == nil || runID == "" {
		return
	}
	if err := a.Repo.FinishRun(runID, completed); err != nil {
		log.Printf("WARN: Could not record run end: %v", err)
	}
}

// buildNotifier always includes mail. Telegram and the webhook are added when configured.
func (a *App) buildNotifier() *notifier.Multi {
	conf := a.Config.Notifier
	channels := []notifier.Channel{notifier.NewMail(conf.Sender, conf.Receiver, conf.Subject, a.runner)}

	if conf.Telegram.Token != "" && conf.Telegram.ChatID != 0 {
		tg, err := notifier.NewTelegram(conf.Telegram.Token, conf.Telegram.ChatID, conf.Subject)
		if err != nil {
			log.Printf("WARN: Telegram notifications disabled: %v", err)
		} else {
			channels = append(channels, tg)
		}
	}
	if conf.Webhook.URL != "" {
		channels = append(channels, notifier.NewWebhook(conf.Webhook.URL, conf.Webhook.Username, conf.Webhook.Password))
	}
	return notifier.NewMulti(channels...)
}

// ExitCode maps the result of Run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil,
		errors.Is(err, ErrNoURLs),
		errors.Is(err, ErrNoValidPages),
		errors.Is(err, urllist.ErrCreated):
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
