package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
)

type state int

const (
	stateSelectingPipe state = iota
	stateChatting
)

type errMsg struct{ err error }

// answerMsg carries a finished run back to the UI.
type answerMsg struct {
	text    string
	sources []domain.Source
	state   domain.RunState
}

type model struct {
	ctx   context.Context
	pipes *pipeline.Manifold

	// State
	state   state
	infos   []pipeline.PipeInfo
	pipeID  string
	cursor  int
	pending bool
	width   int
	height  int
	err     error

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Data
	history  []domain.Message
	entries  []entry
	renderer *glamour.TermRenderer
}

func initialModel(ctx context.Context, pipes *pipeline.Manifold, pipeID string) model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000

	ta.SetWidth(80)
	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent("Ask anything. Answers are researched with web search.")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		ctx:      ctx,
		pipes:    pipes,
		infos:    pipes.Pipes(),
		state:    stateSelectingPipe,
		viewport: vp,
		textarea: ta,
		spinner:  sp,
		renderer: newRenderer(76),
	}
	if _, ok := pipes.Get(pipeID); ok {
		m.pipeID = pipeID
		m.state = stateChatting
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	var tiCmd, vpCmd tea.Cmd
	// Keys only reach the textarea while chatting so menu navigation does not type.
	switch msg.(type) {
	case tea.KeyMsg:
		if m.state == stateChatting && !m.pending {
			m.textarea, tiCmd = m.textarea.Update(msg)
			cmds = append(cmds, tiCmd)
		}
	default:
		m.textarea, tiCmd = m.textarea.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - 4 // Header + status + margins
		if m.viewport.Height < 0 {
			m.viewport.Height = 0
		}
		m.renderer = newRenderer(m.width - 4)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.state == stateSelectingPipe && m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown:
			if m.state == stateSelectingPipe && m.cursor < len(m.infos)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			switch m.state {
			case stateSelectingPipe:
				if len(m.infos) > 0 {
					m.pipeID = m.infos[m.cursor].ID
					m.state = stateChatting
					m.textarea.Reset()
					m.textarea.Focus()
				}
				return m, nil
			case stateChatting:
				if m.pending {
					return m, nil
				}
				m.err = nil // Clear error on new message
				return m.sendMessage()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case answerMsg:
		m.pending = false
		m.history = append(m.history, domain.Message{Role: domain.RoleAssistant, Content: msg.text})
		m.entries = append(m.entries, entry{role: domain.RoleAssistant, text: msg.text, sources: msg.sources})
		m.refresh()

	case errMsg:
		m.pending = false
		m.err = msg.err
		// The question stays unanswered; drop it so the next turn starts clean.
		if n := len(m.history); n > 0 && m.history[n-1].Role == domain.RoleUser {
			m.history = m.history[:n-1]
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *model) refresh() {
	if len(m.entries) == 0 {
		return
	}
	m.viewport.SetContent(renderTranscript(m.entries, m.renderer))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var errorView string
	if m.err != nil {
		errorView = errorStyle.Width(m.width).Render(fmt.Sprintf("\nError: %v", m.err))
	}

	if m.state == stateSelectingPipe {
		header := titleStyle.Render("Select Pipe")

		var optionsView []string
		for i, info := range m.infos {
			cursor := " "
			line := fmt.Sprintf("%s (%s)", info.Name, info.ID)
			if m.cursor == i {
				cursor = ">"
				line = selectedItemStyle.Render(line)
			}
			optionsView = append(optionsView, fmt.Sprintf("%s %s", cursorStyle.Render(cursor), line))
		}

		list := lipgloss.JoinVertical(lipgloss.Left, optionsView...)
		footer := "Press Enter to select, Esc to quit."

		return lipgloss.JoinVertical(lipgloss.Left, header, "", list, "", footer, errorView)
	}

	status := ""
	if m.pending {
		status = m.spinner.View() + " Searching..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("answerpipe · "+m.pipeID),
		"",
		m.viewport.View(),
		status,
		errorView,
		m.textarea.View(),
	)
}

// Actions

func (m model) sendMessage() (model, tea.Cmd) {
	v := strings.TrimSpace(m.textarea.Value())
	if v == "" {
		return m, nil
	}

	switch v {
	case "/exit":
		return m, tea.Quit
	case "/clear":
		m.textarea.Reset()
		m.history = nil
		m.entries = nil
		m.viewport.SetContent("")
		return m, nil
	case "/pipe":
		m.textarea.Reset()
		m.state = stateSelectingPipe
		return m, nil
	}

	// Clear input
	m.textarea.Reset()

	m.history = append(m.history, domain.Message{Role: domain.RoleUser, Content: v})
	m.entries = append(m.entries, entry{role: domain.RoleUser, text: v})
	m.pending = true
	m.refresh()

	history := append([]domain.Message(nil), m.history...)
	return m, tea.Batch(m.spinner.Tick, ask(m.ctx, m.pipes, m.pipeID, history))
}

// ask runs one pipe call off the UI goroutine.
func ask(ctx context.Context, pipes *pipeline.Manifold, pipeID string, history []domain.Message) tea.Cmd {
	return func() tea.Msg {
		var out answerMsg
		deliver := func(_ context.Context, text string) error {
			out.text = text
			return nil
		}
		sources := func(_ context.Context, src []domain.Source) error {
			out.sources = src
			return nil
		}
		res, err := pipes.Chat(ctx, pipeID, history, deliver, sources)
		if err != nil {
			return errMsg{err}
		}
		out.state = res.State
		return out
	}
}
