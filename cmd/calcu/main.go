package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calculab/calcu/internal/config"
	"github.com/calculab/calcu/internal/download"
	"github.com/calculab/calcu/internal/logging"
	"github.com/calculab/calcu/internal/tui"
	"github.com/calculab/calcu/pkg/auth"
	"github.com/calculab/calcu/pkg/client"
	"github.com/calculab/calcu/pkg/store"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load("")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version", "-v":
			fmt.Println("calcu " + version)
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "logout":
			return runLogout(cfg)
		}
	}

	// The TUI owns the terminal; diagnostics go to a file. A broken log
	// destination must not block the app.
	logPath := cfg.LogFile
	if logPath == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			return err
		}
		logPath = p
	}
	logger, logCloser, err := logging.Open(logPath)
	if err != nil {
		logger = logging.Discard()
	} else {
		defer logCloser.Close() //nolint:errcheck
	}

	sessionPath, err := auth.DefaultSessionPath()
	if err != nil {
		return err
	}
	sessions := auth.NewManager(
		auth.NewProvider(cfg.AuthURL, cfg.APIKey),
		auth.NewSessionFile(sessionPath),
		logger,
	)
	// A stale or rejected saved session degrades to the login view.
	sessions.Restore(context.Background())

	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = download.DefaultDownloadDir()
	}

	app := tui.NewApp(tui.Deps{
		Sessions:    sessions,
		Backend:     client.New(cfg.APIURL),
		Store:       store.New(cfg.StoreURL, cfg.APIKey),
		Logger:      logger,
		DownloadDir: downloadDir,
		Version:     version,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// runLogout clears the saved session without entering the TUI. The
// provider revocation is best effort; the local copy goes away regardless.
func runLogout(cfg config.Config) error {
	sessionPath, err := auth.DefaultSessionPath()
	if err != nil {
		return err
	}
	file := auth.NewSessionFile(sessionPath)

	sess, err := file.Load()
	if err == nil && sess == nil {
		fmt.Println("Already logged out.")
		return nil
	}
	if sess != nil {
		provider := auth.NewProvider(cfg.AuthURL, cfg.APIKey)
		provider.SignOut(context.Background(), sess.AccessToken) //nolint:errcheck // best-effort revoke
	}
	if err := file.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}
