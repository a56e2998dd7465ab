package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgHiBlack)

	// Component colors
	databaseColor = color.New()
	loaderColor   = color.New(color.FgBlue)
	voiceColor    = color.New(color.FgMagenta)
	radioColor    = color.New(color.FgGreen)
	catalogColor  = color.New(color.FgCyan)
	lastfmColor   = color.New(color.FgRed)

	// Global state
	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	Logger            *slog.Logger

	// Internal state
	logFile *lumberjack.Logger
	logMu   sync.Mutex
)

// LogOptions controls where and how much the bot logs.
type LogOptions struct {
	Silent bool
	Debug  bool
	// File enables a rotating log file next to stdout when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func init() {
	InitLogger(LogOptions{})
}

// InitLogger initializes the global structured logger
func InitLogger(opts LogOptions) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = opts.Silent
	level := slog.LevelInfo
	if opts.Debug || strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	if opts.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
	}

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// CloseLogger flushes and closes the log file, if any.
func CloseLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogRadio(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "radio"))
}

func LogCatalog(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "catalog"))
}

func LogLastFM(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "lastfm"))
}

func LogVoiceWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogVoiceDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogRadioDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "radio"))
}

func LogCatalogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "catalog"))
}

func LogLastFMDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "lastfm"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := time.Now().Format(DefaultTimeFormat)
	levelStr := "DEBUG"
	levelColor := debugColor

	switch {
	case r.Level >= slog.LevelError+4:
		levelStr = "FATAL"
		levelColor = fatalColor
	case r.Level >= slog.LevelError:
		levelStr = "ERROR"
		levelColor = errorColor
	case r.Level >= slog.LevelWarn:
		levelStr = "WARN"
		levelColor = warnColor
	case r.Level >= slog.LevelInfo:
		levelStr = "INFO"
		levelColor = infoColor
	}

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, r.Message)))
	} else {
		displayMsg := fmt.Sprintf("[%s] %s", levelStr, r.Message)
		if levelStr == "INFO" && strings.HasPrefix(r.Message, "[") {
			if idx := strings.Index(r.Message, "]"); idx > 0 && idx < 20 {
				displayMsg = r.Message
			}
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, displayMsg))
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "LOADER":
		return loaderColor
	case "VOICE":
		return voiceColor
	case "RADIO":
		return radioColor
	case "CATALOG":
		return catalogColor
	case "LASTFM":
		return lastfmColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	modifiedText := strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq)
	return c.Sprint(modifiedText)
}

// GetLogPath returns the active log file, or "".
func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Filename
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	clean := s.re.ReplaceAll(p, []byte(""))
	_, err = s.w.Write(clean)
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuildID = "invalid GUILD_ID: must be a valid Snowflake"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDatabasePruned       = "Pruned %d expired lookup(s)"
	MsgDaemonStarting       = "Starting..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotAlreadyRunning    = "Another instance holds %s"
	MsgBotRegisterFail      = "Command registration failed: %v"
	MsgGenericError         = "%v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderUpToDate       = "Commands are up to date (hash %s)"
	MsgLoaderDevRegistered  = "[DEV] Registered %d command(s) to guild: %s"
	MsgLoaderProdRegistered = "[PROD] Registered %d command(s) globally"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"

	// --- Music ---
	MsgVoiceJoinFail          = "Failed to join voice channel: %v"
	MsgVoiceRespondFail       = "Failed to respond to interaction: %v"
	MsgVoiceNotifyFail        = "Failed to post to channel %s: %v"
	ErrVoiceGuildOnly         = "This command can only be used in a server."
	ErrVoiceNotInChannel      = "You need to be in a voice channel first."
	ErrVoiceWrongChannel      = "You must be in the same voice channel as the bot."
	ErrVoiceNothingPlaying    = "Nothing is playing right now."
	ErrVoiceNoResults         = "No results found for that query."
	ErrVoiceEmptyPlaylist     = "That playlist has no playable entries."
	ErrVoiceShuffleTooFew     = "Need at least three songs in the queue to shuffle."
	ErrVoiceAlreadyPaused     = "Playback is already paused."
	ErrVoiceNotPaused         = "Playback is not paused."
	MsgVoiceQueued            = "Queued **%s** at position %d."
	MsgVoiceQueuedPlaylist    = "Queued **%d** songs from the playlist."
	MsgVoiceSkipped           = "Skipped."
	MsgVoiceStopped           = "Stopped playback and cleared the queue."
	MsgVoicePaused            = "Paused."
	MsgVoiceResumed           = "Resumed."
	MsgVoiceShuffled          = "Shuffled the queue."
	MsgVoiceLoop              = "Loop mode: **%s**"
	MsgVoiceAutoplayOn        = "Smart Radio is **on**. I'll keep the music going when the queue runs out."
	MsgVoiceAutoplayOff       = "Smart Radio is **off**."
	MsgVoiceAutoplaySearching = "Queue empty, finding something similar..."
	MsgVoiceAutoplayAdded     = "Smart Radio picked **%s**"
	MsgVoiceRadioStopped      = "Smart Radio couldn't find anything new. Radio stopped."
	MsgVoicePlaybackFailed    = "Couldn't play **%s**, skipping."
	MsgVoiceIdleLeave         = "Left the voice channel after being idle."
)
