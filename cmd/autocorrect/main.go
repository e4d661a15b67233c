// Command autocorrect runs the locator correction toolchain.
//
// Usage:
//
//	autocorrect -serve :8765 -workspace-root ./tests   # workspace file service
//	autocorrect -mcp                                   # MCP tools on stdio
//	autocorrect -export report.json                    # dump archived corrections
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/MartyZhou/selenium-selector-autocorrect/autocorrect"
	"github.com/MartyZhou/selenium-selector-autocorrect/ledger"
	"github.com/MartyZhou/selenium-selector-autocorrect/workspace"
)

func main() {
	configPath := flag.String("config", "", "path to autocorrect.yaml config file")
	serveAddr := flag.String("serve", "", "serve the workspace file API on this address")
	workspaceRoot := flag.String("workspace-root", ".", "workspace root for -serve")
	mcpStdio := flag.Bool("mcp", false, "serve correction tools over MCP stdio")
	exportPath := flag.String("export", "", "export archived corrections to this file and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	_ = godotenv.Load()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *serveAddr, *workspaceRoot, *mcpStdio, *exportPath); err != nil {
		logger.Error("autocorrect: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, serveAddr, workspaceRoot string, mcpStdio bool, exportPath string) error {
	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	if exportPath != "" {
		return runExport(ctx, cfg, exportPath)
	}
	if serveAddr != "" {
		return runServe(ctx, logger, serveAddr, workspaceRoot)
	}
	if mcpStdio {
		return runMCP(ctx, cfg)
	}

	fmt.Fprintln(os.Stderr, "usage: autocorrect -serve <addr> | -mcp | -export <file>")
	os.Exit(1)
	return nil
}

func loadConfig(path string, logger *slog.Logger) (autocorrect.Config, error) {
	if path == "" {
		cfg := autocorrect.FromEnv()
		cfg.Logger = logger
		return cfg, nil
	}
	cfg, err := autocorrect.LoadConfigFile(path)
	if err != nil {
		return autocorrect.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Logger = logger
	return *cfg, nil
}

func runServe(ctx context.Context, logger *slog.Logger, addr, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root %s is not a directory", root)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: workspace.NewServer(root, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("autocorrect: workspace API listening", "addr", addr, "root", root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func runMCP(ctx context.Context, cfg autocorrect.Config) error {
	corr, err := autocorrect.New(cfg)
	if err != nil {
		return err
	}
	defer corr.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "autocorrect", Version: "0.1.0"}, nil)
	corr.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runExport(ctx context.Context, cfg autocorrect.Config, path string) error {
	if cfg.HistoryDB == "" {
		return errors.New("export needs SELENIUM_CORRECTIONS_DB or history_db in the config")
	}
	db, err := sql.Open("sqlite", cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	store := ledger.NewStore(db)
	records, err := store.Recent(ctx, 1000)
	if err != nil {
		return err
	}
	report := ledger.BuildReport(records, time.Now())
	if err := ledger.WriteReport(path, report); err != nil {
		return err
	}
	cfg.Logger.Info("autocorrect: report written",
		"path", path, "total", report.Summary.Total, "successful", report.Summary.Successful)
	return nil
}
