package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/logging"
	"github.com/ironsheep/omr-grader/internal/server"
	"github.com/ironsheep/omr-grader/internal/sheet"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("omr-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("omr-mcp - MCP server for bubble-sheet grading")
			fmt.Println()
			fmt.Println("Usage: omr-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  OMR_LOG_LEVEL=debug        Log level (default info)")
			fmt.Println("  OMR_SHEET_VERSION=A        Default sheet version")
			fmt.Println("  OMR_WORKERS=4              Batch worker count")
			fmt.Println("  OMR_MAX_BATCH=500          Batch size cap")
			fmt.Println("  OMR_FILL_THRESHOLD=0.45    Fill strategy threshold")
			fmt.Println("  OMR_MIN_MARGIN=0.12        Fill strategy margin")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	cfg := config.Load()

	// stdout is for MCP protocol
	log := logging.New(cfg.LogLevel, os.Stderr)
	log.Debug().Str("version", Version).Str("built", BuildTime).Str("commit", GitCommit).Msg("omr-mcp starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(sheet.Default(), cfg, log)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
