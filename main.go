package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/smartradio/catalog"
	"github.com/leeineian/smartradio/home"
	"github.com/leeineian/smartradio/lastfm"
	"github.com/leeineian/smartradio/proc"
	"github.com/leeineian/smartradio/radio"
	"github.com/leeineian/smartradio/sys"
)

const (
	pidFile       = ".bot.pid"
	pruneInterval = 30 * time.Minute
)

func main() {
	// LogFatal panics so that deferred cleanup still runs.
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	debug := flag.Bool("debug", false, "Enable debug logging")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	forceReg := flag.Bool("force-reg", false, "Register commands even when unchanged")
	flag.Parse()

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	sys.InitLogger(sys.LogOptions{
		Silent: *silent || cfg.Silent,
		Debug:  *debug || cfg.Debug,
		File:   cfg.LogFile,
	})
	defer sys.CloseLogger()

	sys.LogInfo(sys.MsgBotStarting, "Smart Radio")

	if err := sys.InitDatabase(context.Background(), cfg.DatabasePath); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	f := acquirePIDLock()
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(pidFile)
	}()

	if err := run(cfg, *silent, *skipReg, *forceReg); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

// acquirePIDLock takes an exclusive lock on the PID file, asking a previous
// instance to exit first when it still holds it.
func acquirePIDLock() *os.File {
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		sys.LogFatal("Failed to open PID file: %v", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)
	signalled := false

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			sys.LogFatal("Failed to lock PID file: %v", err)
		}

		if !signalled {
			var oldPid int
			_, _ = f.Seek(0, 0)
			if _, scanErr := fmt.Fscanf(f, "%d", &oldPid); scanErr == nil && oldPid != os.Getpid() {
				if process, procErr := os.FindProcess(oldPid); procErr == nil {
					sys.LogInfo("Stopping previous instance (PID: %d)", oldPid)
					_ = process.Signal(syscall.SIGTERM)
				}
			}
			signalled = true
		}

		select {
		case <-ticker.C:
		case <-deadline:
			sys.LogFatal(sys.MsgBotAlreadyRunning, pidFile)
		}
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()
	return f
}

func run(cfg *sys.Config, silent, skipReg, forceReg bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx)

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	searcher := wireRadio(ctx, client, cfg)
	registerMaintenance(searcher)

	if !skipReg {
		if err := sys.RegisterCommands(client, cfg.GuildID, forceReg); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	sys.LogInfo("Shutting down all daemons...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sys.ShutdownDaemons(shutdownCtx)

	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	}
	return nil
}

// wireRadio builds the catalog, the Last.fm client and the recommender, and
// installs the voice manager that plays through them.
func wireRadio(ctx context.Context, client *bot.Client, cfg *sys.Config) *catalog.Searcher {
	rc := cfg.Radio

	searcher := catalog.NewSearcher(catalog.Options{
		Proxy:      cfg.YTDLPProxy,
		CacheTTL:   rc.Search.CacheTTL,
		Timeout:    rc.Search.Timeout,
		RatePerSec: rc.Search.RatePerSec,
	})

	var similar radio.SimilarTrackService
	fm := lastfm.New(lastfm.Config{
		APIKey:     cfg.LastFMAPIKey,
		BaseURL:    cfg.LastFMBaseURL,
		Timeout:    rc.LastFM.Timeout,
		RatePerSec: rc.LastFM.RatePerSec,
		CacheTTL:   rc.LastFM.CacheTTL,
		Cache:      sys.NewLookupCache(nil),
	})
	if fm.Enabled() {
		similar = fm
	} else {
		sys.LogLastFM("LASTFM_API_KEY is not set, similar-track lookups are disabled")
	}

	rng := radio.NewEntropyRand()
	sourcer := radio.NewSourcer(searcher, similar, rng, radio.SourcerConfig{
		SimilarLimit:     rc.SimilarLimit,
		MaxSimilarTracks: rc.MaxSimilarTracks,
		ArtistResults:    rc.ArtistResults,
		GenreResults:     rc.GenreResults,
		FallbackResults:  rc.FallbackResults,
		FallbackQuery:    rc.FallbackQuery,
		RequestDelay:     rc.RequestDelay,
	})
	selector := radio.NewSelector(sourcer, rng,
		radio.WithSelectionWidth(rc.SelectionWidth),
		radio.WithObserver(func(d radio.Decision) {
			if vm := proc.GetVoiceManager(); vm != nil {
				vm.RecordDecision(d)
			}
		}),
	)

	proc.SetupVoiceManager(proc.VoiceConfig{
		Connect:     proc.NewDiscordConnector(client, cfg.YTDLPProxy),
		Recommender: selector,
		Notifier:    home.NewNotifier(ctx, client),
		IdleTimeout: cfg.IdleTimeout,
		AutoplayFor: guildAutoplay,
	})
	home.Configure(searcher, rc.PlaylistLimit)
	return searcher
}

func guildAutoplay(guildID snowflake.ID) (bool, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	on, ok, err := sys.GetGuildAutoplay(ctx, guildID)
	if err != nil {
		sys.LogWarn("Failed to read autoplay default for guild %s: %v", guildID, err)
		return false, false
	}
	return on, ok
}

// registerMaintenance adds the cache pruning and voice teardown daemons.
func registerMaintenance(searcher *catalog.Searcher) {
	sys.RegisterDaemon(sys.LogDatabase, func(ctx context.Context) (bool, func(), func()) {
		lookups := sys.NewLookupCache(nil)
		run := func() {
			ticker := time.NewTicker(pruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := lookups.Prune(ctx)
					if err != nil {
						sys.LogDatabase("Lookup prune failed: %v", err)
					} else if n > 0 {
						sys.LogDatabase(sys.MsgDatabasePruned, n)
					}
					if dropped := searcher.PruneCache(); dropped > 0 {
						sys.LogCatalog("Pruned %d cached search(es)", dropped)
					}
				}
			}
		}
		return true, run, nil
	})

	sys.RegisterDaemon(sys.LogVoice, func(ctx context.Context) (bool, func(), func()) {
		vm := proc.GetVoiceManager()
		if vm == nil {
			return false, nil, nil
		}
		run := func() { <-ctx.Done() }
		shutdown := func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			vm.Shutdown(sctx)
		}
		return true, run, shutdown
	})
}
