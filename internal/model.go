package internal

import (
	"errors"
	"io"
	"time"

	"countdown/internal/state"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

const frameInterval = 120 * time.Millisecond

// MsgStatus carries a status published by the state machine.
type MsgStatus struct {
	Status state.Status
}

type msgFrame struct{}

type Model struct {
	Status state.Status
	Width  int
	Height int

	machine *state.Machine
	keys    keyMap
	help    help.Model
	log     *log.Logger

	// Celebration animation, only while Reached.
	celebrating bool
	frame       int
}

func NewModel(machine *state.Machine, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Model{
		Status:  machine.Status(),
		machine: machine,
		keys:    newKeyMap(),
		help:    help.New(),
		log:     logger.With("component", "tui"),
	}
	m.keys.sync(state.ControlsFor(m.Status))
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgStatus:
		return m, m.setStatus(msg.Status)
	case msgFrame:
		if !m.celebrating {
			return m, nil
		}
		m.frame++
		return m, frameTick()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *Model) View() string {
	return m.mainView()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Pause and Resume share the space bar; only one of them is enabled.
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Start):
		return m, m.dispatch(state.OnClickStart)
	case key.Matches(msg, m.keys.Pause):
		return m, m.dispatch(state.OnClickPause)
	case key.Matches(msg, m.keys.Resume):
		return m, m.dispatch(state.OnClickResume)
	case key.Matches(msg, m.keys.Reset):
		return m, m.dispatch(state.OnClickReset)
	}
	return m, nil
}

func (m *Model) dispatch(ev state.Event) tea.Cmd {
	if err := m.machine.Dispatch(ev); err != nil {
		if errors.Is(err, state.ErrTransitionNotAllowed) {
			m.log.Debug("ignored event", "event", ev, "err", err)
		} else {
			m.log.Error("dispatch", "event", ev, "err", err)
		}
	}
	// Don't wait for the subscription to catch up with our own event.
	return m.setStatus(m.machine.Status())
}

func (m *Model) setStatus(s state.Status) tea.Cmd {
	m.Status = s
	m.keys.sync(state.ControlsFor(s))

	if s.Kind != state.Reached {
		m.celebrating = false
		return nil
	}
	if m.celebrating {
		return nil
	}
	m.celebrating = true
	m.frame = 0
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return msgFrame{}
	})
}
