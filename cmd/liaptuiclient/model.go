package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/wire"
)

// screenState is the screen the presenter is currently rendering.
type screenState int

const (
	stateConnecting screenState = iota
	stateLobby
	stateCreateRoom
	stateRoom
)

// model is the bubbletea model for the whole presenter. It holds exactly
// one live websocket connection and whatever the server has told it about
// the lobby or the room it's currently seated in — it never computes game
// state of its own, only renders the last phase_change/hand_updated it was
// sent, matching spec.md's rule that the client is a dumb presenter, not a
// second rules authority.
type model struct {
	conn *wsConn

	playerName string
	connID     string

	state   screenState
	err     error
	message string

	rooms         []room.Summary
	selectedRoom  int
	createNameBuf string

	roomID   string
	roomName string
	players  []seatJSON
	isHost   bool
	position int

	phase     string
	phaseData phaseData
	hand      []piece.Piece

	declareBuf string
	playBuf    string
}

// frameMsg wraps one decoded inbound frame.
type frameMsg inFrame

// connErrMsg reports the read loop dying (server closed the socket, network
// error) — fatal for this presenter; there's no reconnect UI, only restart.
type connErrMsg struct{ err error }

func newModel(conn *wsConn, playerName string) model {
	return model{conn: conn, playerName: playerName, state: stateConnecting}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(sendClientReady(m.conn, m.playerName), listenForFrames(m.conn))
}

// listenForFrames blocks on one inbound frame and re-issues itself after
// every delivery, the same self-resubmitting tea.Cmd shape the teacher uses
// for its own streaming gRPC receive loops.
func listenForFrames(conn *wsConn) tea.Cmd {
	return func() tea.Msg {
		frame, err := conn.recv()
		if err != nil {
			return connErrMsg{err: err}
		}
		return frameMsg(frame)
	}
}

func sendClientReady(conn *wsConn, playerName string) tea.Cmd {
	return func() tea.Msg {
		if err := conn.send(wire.NewFrame(wire.EventClientReady, wire.ClientReadyPayload{PlayerName: playerName})); err != nil {
			return connErrMsg{err: err}
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case connErrMsg:
		m.err = msg.err
		return m, tea.Quit
	case frameMsg:
		next, cmd := m.handleFrame(inFrame(msg))
		return next, tea.Batch(cmd, listenForFrames(m.conn))
	}
	return m, nil
}

// handleFrame applies one server->client frame to the presenter's view of
// the world. It never rejects or validates anything: every frame here has
// already been accepted by the server's own single-writer broadcast path.
func (m model) handleFrame(f inFrame) (model, tea.Cmd) {
	switch f.Event {
	case wire.EventConnected:
		var p connectedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.connID = p.ConnectionID
		m.state = stateLobby

	case wire.EventRoomListUpdate:
		var p roomListPayload
		_ = json.Unmarshal(f.Data, &p)
		m.rooms = p.Rooms
		if m.selectedRoom >= len(m.rooms) {
			m.selectedRoom = 0
		}

	case wire.EventRoomCreated:
		var p roomCreatedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.roomID = p.RoomID
		m.roomName = p.RoomName
		m.isHost = true

	case wire.EventRoomJoined:
		var p roomJoinedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.roomID = p.RoomID
		m.roomName = p.RoomName
		m.players = p.Players
		m.state = stateRoom
		for _, s := range p.Players {
			if s.Name == m.playerName {
				m.position = s.Position
				m.hand = s.Hand
				// room_joined doesn't carry the host's seat position, and the
				// server enforces host-only actions independently of this UI
				// gate — seat 0 is the host at room creation and unless it
				// leaves, which is the common case this presenter needs to
				// get right for "s"/"add bot" to show up at all.
				m.isHost = s.Position == 0
			}
		}

	case wire.EventPlayerJoined:
		var p playerJoinedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.message = fmt.Sprintf("%s joined seat %d", p.PlayerName, p.Position)

	case wire.EventPlayerLeft:
		var p playerLeftPayload
		_ = json.Unmarshal(f.Data, &p)
		m.message = fmt.Sprintf("%s left", p.PlayerName)

	case wire.EventPlayerDisconnected:
		var p playerDisconnectedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.message = fmt.Sprintf("%s disconnected, bot took over", p.Player)

	case wire.EventPlayerReconnected:
		var p playerReconnectedPayload
		_ = json.Unmarshal(f.Data, &p)
		m.message = fmt.Sprintf("%s reconnected", p.Player)

	case wire.EventPhaseChange:
		var p phaseChangePayload
		_ = json.Unmarshal(f.Data, &p)
		m.phase = p.Phase
		if b, err := json.Marshal(p.PhaseData); err == nil {
			var pd phaseData
			if json.Unmarshal(b, &pd) == nil {
				m.phaseData = pd
			}
		}

	case wire.EventHandUpdated:
		var p handUpdatedPayload
		_ = json.Unmarshal(f.Data, &p)
		if b, err := json.Marshal(p.Pieces); err == nil {
			var hand []piece.Piece
			if json.Unmarshal(b, &hand) == nil {
				m.hand = hand
			}
		}

	case wire.EventSyncResponse:
		var p syncResponsePayload
		_ = json.Unmarshal(f.Data, &p)
		if p.FullState != nil {
			m.phase = p.FullState.Phase
			m.hand = p.FullState.Hand
			if b, err := json.Marshal(p.FullState.PhaseData); err == nil {
				var pd phaseData
				if json.Unmarshal(b, &pd) == nil {
					m.phaseData = pd
				}
			}
		}

	case wire.EventError:
		var p wire.Error
		_ = json.Unmarshal(f.Data, &p)
		m.message = p.Message

	case wire.EventPong:
		// nothing to render; ping/pong only keeps the heartbeat alive.
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.state {
	case stateLobby:
		return m.handleLobbyKey(msg)
	case stateCreateRoom:
		return m.handleCreateRoomKey(msg)
	case stateRoom:
		return m.handleRoomKey(msg)
	}
	return m, nil
}

func (m model) handleLobbyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRoom > 0 {
			m.selectedRoom--
		}
	case "down", "j":
		if m.selectedRoom < len(m.rooms)-1 {
			m.selectedRoom++
		}
	case "n":
		m.state = stateCreateRoom
		m.createNameBuf = ""
	case "enter":
		if m.selectedRoom < len(m.rooms) {
			roomID := m.rooms[m.selectedRoom].RoomID
			return m, m.sendEvent(wire.EventJoinRoom, wire.JoinRoomPayload{RoomID: roomID, PlayerName: m.playerName})
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleCreateRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateLobby
	case "enter":
		name := m.createNameBuf
		if name == "" {
			name = m.playerName + "'s room"
		}
		m.state = stateLobby
		return m, m.sendEvent(wire.EventCreateRoom, wire.CreateRoomPayload{RoomName: name, PlayerName: m.playerName, IsPublic: true})
	case "backspace":
		if len(m.createNameBuf) > 0 {
			m.createNameBuf = m.createNameBuf[:len(m.createNameBuf)-1]
		}
	default:
		m.createNameBuf += msg.String()
	}
	return m, nil
}

func (m model) handleRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "l":
		m.state = stateLobby
		return m, m.sendEvent(wire.EventLeaveRoom, nil)
	case msg.String() == "s" && m.isHost:
		return m, m.sendEvent(wire.EventStartGame, nil)
	case msg.String() == "p" && m.inTurnPhase():
		m.playBuf = ""
		return m, m.sendEvent(wire.EventPlay, wire.PlayPayload{PieceIDs: nil})
	case m.inDeclarePhase():
		return m.handleDeclareKey(msg)
	case m.inTurnPhase():
		return m.handlePlayKey(msg)
	}
	return m, nil
}

func (m model) handleDeclareKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v, err := strconv.Atoi(m.declareBuf)
		m.declareBuf = ""
		if err != nil {
			return m, nil
		}
		return m, m.sendEvent(wire.EventDeclare, wire.DeclarePayload{Value: v})
	case "backspace":
		if len(m.declareBuf) > 0 {
			m.declareBuf = m.declareBuf[:len(m.declareBuf)-1]
		}
	default:
		if len(msg.String()) == 1 && msg.String()[0] >= '0' && msg.String()[0] <= '9' {
			m.declareBuf += msg.String()
		}
	}
	return m, nil
}

func (m model) handlePlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		ids := strings.FieldsFunc(m.playBuf, func(r rune) bool { return r == ',' || r == ' ' })
		m.playBuf = ""
		return m, m.sendEvent(wire.EventPlay, wire.PlayPayload{PieceIDs: ids})
	case "backspace":
		if len(m.playBuf) > 0 {
			m.playBuf = m.playBuf[:len(m.playBuf)-1]
		}
	default:
		m.playBuf += msg.String()
	}
	return m, nil
}

func (m model) inDeclarePhase() bool {
	return m.phase == string(phase.Declaration)
}

func (m model) inTurnPhase() bool {
	return m.phase == string(phase.Turn)
}

func (m model) sendEvent(event string, data interface{}) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		if err := conn.send(wire.NewFrame(event, data)); err != nil {
			return connErrMsg{err: err}
		}
		return nil
	}
}
