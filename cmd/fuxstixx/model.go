//go:build cgo

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	voice "github.com/fuxstixx/fuxstixx-core/core"
	"github.com/fuxstixx/fuxstixx-core/core/events"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	modelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	liveStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// bridgeUpdate carries bridge callbacks into the event loop.
type bridgeUpdate struct {
	state        *voice.State
	conversation []voice.ConversationEntry
	err          error
}

type bridgeUpdateMsg bridgeUpdate

// voiceToggleErrMsg reports a failed activation or teardown started
// from the keyboard.
type voiceToggleErrMsg struct{ err error }

type chatModel struct {
	bridge  *voice.Bridge
	updates chan bridgeUpdate

	chatView viewport.Model
	input    textinput.Model

	entries []voice.ConversationEntry
	state   voice.State
	lastErr error

	width  int
	height int
	ready  bool

	quitting bool
}

func newChatModel(bridge *voice.Bridge, updates chan bridgeUpdate) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message, or ctrl+t to talk"
	input.Focus()

	return chatModel{
		bridge:  bridge,
		updates: updates,
		input:   input,
		state:   bridge.State(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenBridge())
}

// toggleVoice activates or deactivates the voice session off the
// update loop; a refused microphone or failed handshake comes back as
// a message so the alert is never swallowed.
func (m chatModel) toggleVoice() tea.Cmd {
	bridge := m.bridge
	if m.state == voice.StateIdle {
		return func() tea.Msg {
			if err := bridge.Activate(context.Background()); err != nil {
				return voiceToggleErrMsg{err: err}
			}
			return nil
		}
	}
	return func() tea.Msg {
		if err := bridge.Deactivate(); err != nil {
			return voiceToggleErrMsg{err: err}
		}
		return nil
	}
}

func (m chatModel) listenBridge() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return nil
		}
		return bridgeUpdateMsg(update)
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.bridge.Deactivate()
			return m, tea.Quit

		case tea.KeyCtrlT:
			m.lastErr = nil
			return m, m.toggleVoice()

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			if err := m.bridge.SendText(text); err != nil {
				m.lastErr = err
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatHeight := max(m.height-6, 3)
		if !m.ready {
			m.chatView = viewport.New(m.width, chatHeight)
			m.ready = true
		} else {
			m.chatView.Width = m.width
			m.chatView.Height = chatHeight
		}
		m.input.Width = max(m.width-4, 10)
		m.refreshChat()

	case voiceToggleErrMsg:
		m.lastErr = msg.err
		return m, nil

	case bridgeUpdateMsg:
		if msg.state != nil {
			m.state = *msg.state
		}
		if msg.conversation != nil {
			m.entries = msg.conversation
			m.refreshChat()
		}
		if msg.err != nil {
			m.lastErr = msg.err
		}
		cmds = append(cmds, m.listenBridge())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *chatModel) refreshChat() {
	if !m.ready {
		return
	}

	var lines []string
	for _, entry := range m.entries {
		label := userStyle.Render("you")
		if entry.Speaker == events.SpeakerModel {
			label = modelStyle.Render("fux")
		}

		text := entry.Text
		if entry.Live {
			text = liveStyle.Render(text + " …")
		}
		wrapped := wordwrap.String(fmt.Sprintf("%s  %s", label, text), max(m.width-2, 20))
		lines = append(lines, wrapped)
	}

	m.chatView.SetContent(strings.Join(lines, "\n"))
	m.chatView.GotoBottom()
}

func (m chatModel) statusLine() string {
	var status string
	switch m.state {
	case voice.StateIdle:
		status = "voice off"
	case voice.StateConnecting:
		status = "connecting…"
	case voice.StateActive:
		status = "listening"
	case voice.StateClosing:
		status = "hanging up…"
	}

	line := statusStyle.Render(fmt.Sprintf("● %s", status))
	if m.lastErr != nil {
		line += "  " + errorStyle.Render(m.lastErr.Error())
	}
	return line
}

func (m chatModel) View() string {
	if m.quitting {
		return "bye\n"
	}
	if !m.ready {
		return "starting…"
	}

	return strings.Join([]string{
		titleStyle.Render("FuXStiXX"),
		m.chatView.View(),
		m.statusLine(),
		m.input.View(),
		helpStyle.Render("ctrl+t voice on/off  •  enter send  •  esc quit"),
	}, "\n")
}
