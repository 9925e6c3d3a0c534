// Command liaptuiclient is the minimal terminal presenter: it dials a
// liaptuisrv websocket endpoint and renders the broadcast stream with
// bubbletea/lipgloss, serving both as a playable client and as manual
// verification of the broadcast contract. It computes no game logic of its
// own — every seat view, hand, and phase it shows is exactly what the last
// phase_change/hand_updated frame said.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	flagURL  = flag.String("url", "ws://127.0.0.1:8080/ws", "websocket URL of the liaptuisrv endpoint")
	flagName = flag.String("name", "", "player name")
)

func main() {
	flag.Parse()

	name := *flagName
	if name == "" {
		fmt.Fprintln(os.Stderr, "liaptuiclient: -name is required")
		os.Exit(1)
	}

	conn, err := dial(*flagURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "liaptuiclient: %v\n", err)
		os.Exit(1)
	}
	defer conn.close()

	p := tea.NewProgram(newModel(conn, name))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "liaptuiclient: %v\n", err)
		os.Exit(1)
	}
}
