package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/fpt/cobrowse/internal/app"
	"github.com/fpt/cobrowse/internal/config"
	"github.com/fpt/cobrowse/internal/connectrpc"
	"github.com/fpt/cobrowse/internal/infra"
	"github.com/fpt/cobrowse/internal/mcp"
	"github.com/fpt/cobrowse/internal/site"
	"github.com/fpt/cobrowse/pkg/agent/domain"
	client "github.com/fpt/cobrowse/pkg/client"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

const version = "0.1.0"

// resolveStringFlag returns the non-empty value, preferring short flag over long flag
func resolveStringFlag(shortVal, longVal string) string {
	if shortVal != "" {
		return shortVal
	}
	return longVal
}

func printUsage() {
	fmt.Println("cobrowse - co-browsing assistant for a portfolio website")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  (default)               Interactive REPL on a single page")
	fmt.Println("  -q \"question\"           One-shot query")
	fmt.Println("  --serve                 Connect service plus the portfolio site")
	fmt.Println("  --serve-site            Portfolio site only")
	fmt.Println("  --mcp                   MCP server on stdin/stdout")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cobrowse                                   # Chat about the built-in portfolio")
	fmt.Println("  cobrowse -q \"Show me the skills\"           # One-shot")
	fmt.Println("  cobrowse -b anthropic                      # Use Anthropic backend")
	fmt.Println("  cobrowse -p https://example.com/portfolio  # Drive a live Chrome page")
	fmt.Println("  cobrowse --serve                           # Serve sessions on localhost:8080")
	fmt.Println()
}

func main() {
	var backend = flag.String("b", "", "LLM backend (gemini, anthropic, openai, or ollama)")
	var backendLong = flag.String("backend", "", "LLM backend (gemini, anthropic, openai, or ollama)")
	var model = flag.String("m", "", "Model name to use")
	var modelLong = flag.String("model", "", "Model name to use")
	var settingsPath = flag.String("s", "", "Path to settings file")
	var settingsPathLong = flag.String("settings", "", "Path to settings file")
	var pageURL = flag.String("p", "", "Page URL to co-browse in Chrome (implies rod mode)")
	var pageURLLong = flag.String("page", "", "Page URL to co-browse in Chrome (implies rod mode)")
	var query = flag.String("q", "", "Ask one question and exit")
	var queryLong = flag.String("query", "", "Ask one question and exit")
	var logLevel = flag.String("l", "", "Log level (debug, info, warn, error)")
	var logLevelLong = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	var serve = flag.Bool("serve", false, "Serve the Connect session service and the site")
	var serveSite = flag.Bool("serve-site", false, "Serve the portfolio site only")
	var mcpMode = flag.Bool("mcp", false, "Run as an MCP server on stdin/stdout")
	var help = flag.Bool("h", false, "Show this help message")
	var helpLong = flag.Bool("help", false, "Show this help message")

	flag.Usage = func() {
		printUsage()
		fmt.Println("Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help || *helpLong {
		flag.Usage()
		return
	}

	resolvedBackend := resolveStringFlag(*backend, *backendLong)
	resolvedModel := resolveStringFlag(*model, *modelLong)
	resolvedPage := resolveStringFlag(*pageURL, *pageURLLong)
	resolvedQuery := resolveStringFlag(*query, *queryLong)
	if resolvedQuery == "" && len(flag.Args()) > 0 {
		resolvedQuery = strings.Join(flag.Args(), " ")
	}

	settings, err := config.LoadSettings(resolveStringFlag(*settingsPath, *settingsPathLong))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}

	if lvl := resolveStringFlag(*logLevel, *logLevelLong); lvl != "" {
		settings.Log.Level = lvl
	}
	// stdout carries protocol frames in MCP mode
	var console io.Writer = os.Stdout
	if *mcpMode {
		console = nil
	}
	level := pkgLogger.LogLevel(settings.Log.Level)
	pkgLogger.SetGlobalLoggerWithConsoleWriter(level, console)
	logger := pkgLogger.NewLoggerWithConsoleWriter(level, console)

	if resolvedBackend != "" {
		settings.LLM = config.GetDefaultLLMSettingsForBackend(resolvedBackend)
	}
	if resolvedModel != "" {
		settings.LLM.Model = resolvedModel
	}
	if resolvedPage != "" {
		settings.Browser.Mode = config.BrowserModeRod
		settings.Browser.URL = resolvedPage
	}

	llm, notice := newLLM(settings, logger)

	s, err := site.Load(settings.Site.DataPath, settings.Site.PersonaPath)
	if err != nil {
		logger.ErrorWithIntention(pkgLogger.IntentionConfig, "Failed to load portfolio", "error", err)
		os.Exit(1)
	}
	owner := s.Owner()
	if settings.Site.Owner != "" {
		owner = settings.Site.Owner
	}
	addr := settings.Server.Addr

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if *serveSite {
		if err := serveSiteOnly(ctx, addr, s, logger); err != nil {
			logger.ErrorWithIntention(pkgLogger.IntentionError, "Site server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	pages, cleanup, err := newPageFactory(ctx, settings, s, logger, !*serve)
	if err != nil {
		logger.ErrorWithIntention(pkgLogger.IntentionPage, "Failed to prepare the page", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *serve {
		serveCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		server := connectrpc.NewCobrowseServer(connectrpc.ServerOptions{
			Owner:             owner,
			SystemInstruction: s.Persona().SystemInstruction(owner),
			LLM:               llm,
			Unconfigured:      notice,
			Pages:             pages,
		}, logger)
		if err := connectrpc.StartServer(serveCtx, addr, server, s, logger); err != nil {
			logger.ErrorWithIntention(pkgLogger.IntentionError, "Server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	page, release, err := pages(ctx)
	if err != nil {
		logger.ErrorWithIntention(pkgLogger.IntentionPage, "Failed to open page", "error", err)
		os.Exit(1)
	}
	defer release()

	session := app.NewSession(app.SessionConfig{
		ID:                "local",
		Owner:             owner,
		SystemInstruction: s.Persona().SystemInstruction(owner),
		LLM:               llm,
	}, page)
	defer session.Close()

	switch {
	case *mcpMode:
		mcpCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		server, err := mcp.NewServer(session, s, version, logger)
		if err != nil {
			logger.ErrorWithIntention(pkgLogger.IntentionError, "Failed to create MCP server", "error", err)
			os.Exit(1)
		}
		if err := server.Start(mcpCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorWithIntention(pkgLogger.IntentionError, "MCP server failed", "error", err)
			os.Exit(1)
		}
	case resolvedQuery != "":
		repl := app.NewREPL(session, llm, notice, os.Stdout)
		repl.Ask(ctx, resolvedQuery)
		printTokenUsage(llm)
	case !term.IsTerminal(int(os.Stdin.Fd())):
		// piped input: one query per line, shared history
		repl := app.NewREPL(session, llm, notice, os.Stdout)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				if repl.HandleLine(ctx, line) {
					break
				}
			}
		}
	default:
		repl := app.NewREPL(session, llm, notice, os.Stdout)
		if uc, err := config.DefaultUserConfig(); err == nil {
			repl.WithHistoryFile(uc.HistoryFile)
		}
		if err := repl.Run(ctx); err != nil {
			logger.ErrorWithIntention(pkgLogger.IntentionError, "REPL failed", "error", err)
			os.Exit(1)
		}
	}
}

// newLLM builds the model client. A missing credential is not fatal: the
// returned notice replaces chat while tools keep working.
func newLLM(settings *config.Settings, logger *pkgLogger.Logger) (domain.LLM, string) {
	if err := config.ValidateSettings(settings); err != nil {
		if errors.Is(err, config.ErrAPIKeyMissing) {
			logger.WarnWithIntention(pkgLogger.IntentionConfig, "Chat disabled", "reason", err)
			return nil, config.UnconfiguredMessage(settings.LLM.Backend)
		}
		logger.ErrorWithIntention(pkgLogger.IntentionConfig, "Settings validation failed", "error", err)
		os.Exit(1)
	}

	llm, err := client.NewLLMClient(settings.LLM)
	if err != nil {
		if errors.Is(err, config.ErrAPIKeyMissing) {
			return nil, config.UnconfiguredMessage(settings.LLM.Backend)
		}
		logger.ErrorWithIntention(pkgLogger.IntentionModel, "Failed to create LLM client", "error", err)
		os.Exit(1)
	}
	logger.DebugWithIntention(pkgLogger.IntentionModel, "Model ready",
		"backend", settings.LLM.Backend, "model", llm.ModelID())
	return llm, ""
}

// newPageFactory picks the page implementation. In rod mode without a URL
// the built-in site is served on the configured address; serveBuiltin is
// false when the caller serves it already.
func newPageFactory(ctx context.Context, settings *config.Settings, s *site.Site, logger *pkgLogger.Logger, serveBuiltin bool) (app.PageFactory, func(), error) {
	base := "http://" + settings.Server.Addr
	if settings.Browser.Mode != config.BrowserModeRod {
		return app.StaticPageFactory(s, base), func() {}, nil
	}

	browser, err := infra.LaunchBrowser(ctx, infra.BrowserOptions{
		Bin:               settings.Browser.Bin,
		Headless:          settings.Browser.Headless,
		NavigationTimeout: settings.Browser.NavigationTimeoutDuration(),
	})
	if err != nil {
		return nil, nil, err
	}

	target := settings.Browser.URL
	siteCtx, stopSite := context.WithCancel(ctx)
	if target == "" {
		target = base + "/"
		if serveBuiltin {
			go func() {
				if err := serveSiteOnly(siteCtx, settings.Server.Addr, s, logger); err != nil {
					logger.ErrorWithIntention(pkgLogger.IntentionError, "Site server failed", "error", err)
				}
			}()
			waitForSite(ctx, target)
		}
	}

	cleanup := func() {
		stopSite()
		_ = browser.Close()
	}
	return app.RodPageFactory(browser, target), cleanup, nil
}

func serveSiteOnly(ctx context.Context, addr string, handler http.Handler, logger *pkgLogger.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.InfoWithIntention(pkgLogger.IntentionTransport, "Serving portfolio site", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("site server error: %w", err)
	}
	return nil
}

// waitForSite polls url until it answers or two seconds pass.
func waitForSite(ctx context.Context, url string) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// printTokenUsage prints a [usage] line to stderr if the client exposes token usage.
func printTokenUsage(llm domain.LLM) {
	provider, ok := llm.(domain.TokenUsageProvider)
	if !ok {
		return
	}
	usage, ok := provider.LastTokenUsage()
	if !ok {
		return
	}
	fmt.Fprintf(os.Stderr, "[usage] input=%d output=%d total=%d\n",
		usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
}
