package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/taskflowhq/supportd/internal/agent"
	"github.com/taskflowhq/supportd/internal/api"
	"github.com/taskflowhq/supportd/internal/config"
	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/escalation"
	"github.com/taskflowhq/supportd/internal/identity"
	"github.com/taskflowhq/supportd/internal/intent"
	"github.com/taskflowhq/supportd/internal/kb"
	"github.com/taskflowhq/supportd/internal/persist"
	"github.com/taskflowhq/supportd/internal/sentiment"
	"github.com/taskflowhq/supportd/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the supportd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running supportd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show supportd system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "supportd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// ensureToken returns the configured API token, generating and persisting
// one on first start.
func ensureToken(cfg *config.Config) (string, error) {
	if cfg.Auth.Token != "" {
		return cfg.Auth.Token, nil
	}
	token := uuid.New().String()
	if err := config.StoreToken(token); err != nil {
		return "", fmt.Errorf("storing generated token: %w", err)
	}
	slog.Info("generated new API bearer token", "hint", "read it from the platform secret store or set SUPPORTD_AUTH_TOKEN")
	cfg.Auth.Token = token
	return token, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "supportd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	token, err := ensureToken(&cfg)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("supportd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("supportd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	db, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Replay persisted state into the in-memory store.
	store := conversation.NewStore(identity.NewResolver())
	links, err := db.LoadIdentityLinks()
	if err != nil {
		return fmt.Errorf("loading identity links: %w", err)
	}
	for _, l := range links {
		store.LinkIdentity(l[0], l[1])
	}
	convs, err := db.LoadConversations()
	if err != nil {
		return fmt.Errorf("loading conversations: %w", err)
	}
	store.Restore(convs)
	slog.Info("state replayed", "conversations", len(convs), "identity_links", len(links))

	// Load and index the knowledge base.
	sections, err := kb.LoadDir(ctx, cfg.KB.Dir)
	if err != nil {
		return fmt.Errorf("loading knowledge base from %s: %w", cfg.KB.Dir, err)
	}
	index, err := kb.NewIndex(sections)
	if err != nil {
		return fmt.Errorf("indexing knowledge base: %w", err)
	}
	slog.Info("knowledge base indexed", "dir", cfg.KB.Dir, "sections", index.Len())

	decider := agent.New(store, sentiment.New(), intent.New(), escalation.New(), index, cfg.KB.TopK, slog.Default())

	appHandler := api.NewAppHandler(api.AppDeps{
		Decider: decider,
		Store:   store,
		Log:     db,
		Token:   token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Start the snapshot persister.
	pollInterval, err := time.ParseDuration(cfg.Persist.Interval)
	if err != nil {
		slog.Warn("invalid persist interval, using default 500ms", "value", cfg.Persist.Interval, "error", err)
		pollInterval = 500 * time.Millisecond
	}
	persister := persist.New(store, db, pollInterval)
	persisterDone := make(chan struct{})
	go func() {
		persister.Run(ctx)
		close(persisterDone)
	}()

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:  store,
		Index:  index,
		Scorer: sentiment.New(),
		Log:    db,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "supportd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout; the persister flushes dirty
	// conversations before exiting.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	select {
	case <-persisterDone:
	case <-shutdownCtx.Done():
		slog.Warn("persister did not flush in time")
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("supportd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop supportd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to supportd (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("KB dir", "%s", cfg.KB.Dir)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	if running && cfg.Auth.Token != "" {
		statsResp, err := apiGet(client, serverURL+"/stats", cfg.Auth.Token)
		if err == nil {
			var stats conversation.Stats
			if decodeJSON(statsResp, &stats) == nil {
				printStatus("Conversations", "%d total, %d active, %d escalated, %d resolved",
					stats.Total, stats.Active, stats.Escalated, stats.Resolved)
				printStatus("Customers", "%d", stats.UniqueCustomers)
			}
		}
	}

	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
