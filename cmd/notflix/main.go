package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgorozz/notflix/internal/client"
	"github.com/dgorozz/notflix/internal/config"
	"github.com/dgorozz/notflix/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	api := client.New(cfg.APIURL, cfg.APIKey, cfg.HTTPTimeout)

	p := tea.NewProgram(
		tui.NewRootModel(api, cfg.APIURL, cfg.HTTPTimeout),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
