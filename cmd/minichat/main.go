// Command minichat is the terminal client. It talks to a minichat server, or
// with -embedded runs the whole backend in-process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"minichat/internal/app"
	"minichat/internal/auth"
	"minichat/internal/config"
	"minichat/internal/sdk"
	"minichat/internal/tui"
)

func main() {
	cfg := config.LoadClient()

	serverURL := flag.String("server", cfg.ServerURL, "minichat server URL")
	embedded := flag.Bool("embedded", false, "run the backend in-process instead of connecting to a server")
	mediaDir := flag.String("media-dir", cfg.MediaDir, "where embedded mode keeps uploaded media")
	logFile := flag.String("log", cfg.LogFile, "log file")
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(f)

	backend, err := newBackend(*embedded, *serverURL, *mediaDir, cfg.SSOSecret)
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := tui.New(ctx, backend, cfg.SplashDuration)
	defer model.Close()

	log.Printf("minichat starting embedded=%t server=%s", *embedded, *serverURL)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.Printf("ui stopped: %v", err)
	}
}

func newBackend(embedded bool, serverURL, mediaDir, ssoSecret string) (app.Backend, error) {
	if embedded {
		var sso *auth.JWTManager
		if ssoSecret != "" {
			sso = auth.NewJWTManager(ssoSecret, 5*time.Minute)
		}
		e, err := sdk.NewEmbedded(mediaDir, sso)
		if err != nil {
			return app.Backend{}, err
		}
		return e.Backend(), nil
	}

	client, err := sdk.New(serverURL, nil)
	if err != nil {
		return app.Backend{}, err
	}
	return app.Backend{Identity: client, Docs: client, Uploads: client}, nil
}
