// Package cmd contains the CLI entry points. main.go stays minimal; all
// flag handling and command routing lives here.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/faceforge/faceforge/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute routes the command line. --version and --help work even when the
// config is invalid; everything else starts the server.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			// fall through to the default below
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	// A local .env is a convenience for development; missing is fine.
	_ = godotenv.Load()

	return runServe(initLogger())
}

// initLogger builds the structured logger. DEBUG in the environment enables
// debug level; FACEFORGE_LOG_JSON switches to JSON output for collectors.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("FACEFORGE_LOG_JSON") != "",
	})
}

func printVersion() {
	fmt.Printf("faceforge v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("faceforge - natural-language watchface generation service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  faceforge                Start the HTTP API server (default)")
	fmt.Println("  faceforge serve          Start the HTTP API server")
	fmt.Println("  faceforge --version      Show version information")
	fmt.Println("  faceforge --help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY           Default model API key (per-client keys via POST /api/apikey)")
	fmt.Println("  FACEFORGE_MODEL          Model name (default googleai/gemini-2.5-flash)")
	fmt.Println("  FACEFORGE_STORAGE_DIR    Project storage root")
	fmt.Println("  FACEFORGE_LISTEN_ADDR    Listen address (default 127.0.0.1:10030)")
	fmt.Println("  FACEFORGE_LOG_JSON       Log as JSON")
	fmt.Println("  DEBUG                    Enable debug logging")
}
