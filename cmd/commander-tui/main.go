package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/commander/internal/audit"
	"github.com/aristath/commander/internal/commander"
	"github.com/aristath/commander/internal/config"
	"github.com/aristath/commander/internal/events"
	"github.com/aristath/commander/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	globalPath, projectPath, err := config.DefaultPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config paths: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus()
	defer bus.Close()

	cmd := commander.NewCommanderWithQueueCapacity(nil, cfg.Queue.Capacity)
	if err := events.Bridge(cmd, bus); err != nil {
		fmt.Fprintf(os.Stderr, "Error wiring event bridge: %v\n", err)
		os.Exit(1)
	}

	var auditStore *audit.SQLiteStore
	if cfg.Audit.Enabled {
		auditStore, err = audit.NewSQLiteStore(ctx, cfg.Audit.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening audit store: %v\n", err)
			os.Exit(1)
		}
		defer auditStore.Close()

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		if _, err := audit.Subscribe(ctx, bus, auditStore, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error subscribing audit store: %v\n", err)
			os.Exit(1)
		}
	}

	model := tui.New(bus, cfg, globalPath, projectPath)
	p := tea.NewProgram(model, tea.WithAltScreen())

	tuiErr := make(chan error, 1)
	go func() {
		_, err := p.Run()
		tuiErr <- err
	}()

	commanderErr := make(chan error, 1)
	go func() {
		_, err := cmd.Run(ctx, cfg.Queue.AutoExit)
		commanderErr <- err
	}()

	select {
	case err := <-tuiErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case err := <-commanderErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Commander error: %v\n", err)
		}
		p.Quit()
		<-tuiErr
	case <-ctx.Done():
		stop()
		log.Println("Shutdown signal received, cleaning up...")

		if err := cmd.Exit(nil, false); err != nil {
			log.Printf("commander exit error: %v", err)
		}
		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-tuiErr:
			if err != nil {
				log.Printf("TUI exit error: %v", err)
			}
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}

	log.Println("Shutdown complete")
}
