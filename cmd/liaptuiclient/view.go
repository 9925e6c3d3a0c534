package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/liaptui/server/internal/piece"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(2)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("140")).MarginTop(1)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
)

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("liaptui") + "\n\n")

	switch m.state {
	case stateConnecting:
		b.WriteString("connecting...\n")
	case stateLobby:
		b.WriteString(m.viewLobby())
	case stateCreateRoom:
		b.WriteString(m.viewCreateRoom())
	case stateRoom:
		b.WriteString(m.viewRoom())
	}

	if m.message != "" {
		b.WriteString("\n" + infoStyle.Render(m.message) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}

func (m model) viewLobby() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("playing as %s\n\n", m.playerName))
	if len(m.rooms) == 0 {
		b.WriteString("no rooms open\n")
	}
	for i, r := range m.rooms {
		cursor := "  "
		style := blurredStyle
		if i == m.selectedRoom {
			cursor = "> "
			style = focusedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%s (%d/%d) host %s", cursor, r.RoomID, r.Occupancy, r.MaxPlayers, r.Host)) + "\n")
	}
	b.WriteString(helpStyle.Render("\nup/down select * enter join * n create room * q quit"))
	return b.String()
}

func (m model) viewCreateRoom() string {
	return fmt.Sprintf("room name: %s\n\n%s", m.createNameBuf, helpStyle.Render("enter create * esc cancel"))
}

func (m model) viewRoom() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("room %s (%s) - phase %s\n\n", m.roomID, m.roomName, m.phase))

	for _, s := range m.phaseData.Seats {
		marker := "  "
		if s.Position == m.position {
			marker = "> "
		}
		bot := ""
		if s.IsBot {
			bot = " [bot]"
		}
		declared := "-"
		if s.Declared != nil {
			declared = fmt.Sprintf("%d", *s.Declared)
		}
		b.WriteString(fmt.Sprintf("%sseat %d %s%s score=%d hand=%d declared=%s piles=%d\n",
			marker, s.Position, s.Name, bot, s.Score, s.HandCount, declared, s.CapturedPiles))
	}

	if len(m.hand) > 0 {
		b.WriteString("\nyour hand:\n")
		for _, p := range m.hand {
			b.WriteString("  " + p.ID + " " + p.String() + "\n")
		}
	}

	if len(m.phaseData.CurrentPlays) > 0 {
		b.WriteString("\ncurrent plays:\n")
		for pos, play := range m.phaseData.CurrentPlays {
			b.WriteString(fmt.Sprintf("  seat %d: %s (%s)\n", pos, renderPlay(play.Pieces), play.Type))
		}
	}

	b.WriteString("\n")
	switch {
	case m.inDeclarePhase():
		b.WriteString(fmt.Sprintf("declare value: %s_\n", m.declareBuf))
		b.WriteString(helpStyle.Render("type digits, enter to submit"))
	case m.inTurnPhase():
		b.WriteString(fmt.Sprintf("play piece ids (comma separated): %s_\n", m.playBuf))
		b.WriteString(helpStyle.Render("enter to submit * p to pass"))
	default:
		help := "l leave"
		if m.isHost {
			help = "s start game * " + help
		}
		b.WriteString(helpStyle.Render(help))
	}
	return b.String()
}

func renderPlay(pieces []piece.Piece) string {
	ids := make([]string, len(pieces))
	for i, p := range pieces {
		ids[i] = p.ID
	}
	return strings.Join(ids, ",")
}
