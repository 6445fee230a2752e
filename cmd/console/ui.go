package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/internal/services/events"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const AgentName = "GPTStar"

// ConsoleUI is the BubbleTea model that follows one match.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config  *ConsoleConfig
	client  *http.Client
	matchID uuid.UUID

	match     *state.Match
	decisions []*decision.Record
	chat      []string

	logViewport  viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	streaming    bool

	events chan events.Event
	done   <-chan error
	cancel context.CancelFunc

	// copy writes to the system clipboard; replaced in tests
	copy func(string) error

	showQuitModal bool
}

type matchLoadedMsg struct {
	match     *state.Match
	decisions []*decision.Record
	err       error
}

type matchEventMsg struct {
	event events.Event
}

type streamClosedMsg struct {
	err error
}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, matchID uuid.UUID) ConsoleUI {
	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		matchID:      matchID,
		logViewport:  logVp,
		metaViewport: metaVp,
		events:       make(chan events.Event, 16),
		copy:         clipboard.WriteAll,
		status:       "Loading match...",
	}
}

// formatDecision renders one journal entry for the log panel.
func formatDecision(rec *decision.Record, width int) string {
	var b strings.Builder
	header := fmt.Sprintf("[%s] #%d ", rec.GameTime, rec.Iteration)
	b.WriteString(promptStyle.Render(header) + actionStyle.Render(rec.Action))

	if rec.Fallback {
		b.WriteString("\n" + errorStyle.Render(wordwrap.String(fmt.Sprintf("fallback (%s): %s", rec.ErrorKind, rec.Error), width)))
	}
	if rec.CommandError != "" {
		b.WriteString("\n" + loadingStyle.Render(wordwrap.String("command failed: "+rec.CommandError, width)))
	}
	if rec.Reasoning != "" {
		b.WriteString("\n" + reasoningStyle.Render(AgentName+": ") + wordwrap.String(rec.Reasoning, width-len(AgentName)-2))
		if rec.Filtered {
			b.WriteString(" " + promptStyle.Render("(filtered in chat)"))
		}
	}
	return b.String()
}

func writeMetadata(m *state.Match, decisions int, streaming bool) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("MATCH") + "\n\n")

	if m == nil {
		content.WriteString("Waiting for data...\n")
		return content.String()
	}

	content.WriteString("Match ID:\n")
	content.WriteString(m.ID.String()[:8] + "...\n\n")

	content.WriteString("Model:\n")
	content.WriteString(fmt.Sprintf("%s (%s)\n\n", m.Model, m.Provider))

	if m.Difficulty != "" {
		content.WriteString("Difficulty:\n")
		content.WriteString(m.Difficulty + "\n\n")
	}

	content.WriteString("Status:\n")
	status := string(m.Status)
	if m.Result != "" {
		status += " (" + string(m.Result) + ")"
	}
	content.WriteString(status + "\n\n")

	content.WriteString("Game time:\n")
	content.WriteString(m.GameTime() + "\n\n")

	content.WriteString("Decisions:\n")
	content.WriteString(fmt.Sprintf("%d shown, %d fallbacks\n\n", decisions, m.Fallbacks))

	content.WriteString("Stream:\n")
	if streaming {
		content.WriteString("live\n")
	} else {
		content.WriteString("closed\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• q/Ctrl+C: Quit\n")
	content.WriteString("• y: Copy reasoning\n")
	content.WriteString("• ↑/↓: Scroll\n")

	return content.String()
}

// writeLogContent rebuilds the log for the current viewport width
func (m *ConsoleUI) writeLogContent() {
	width := m.logViewport.Width - 6 // Account for left(3) + right(3) padding
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("GPTSTAR") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, rec := range m.decisions {
		content.WriteString(formatDecision(rec, width) + "\n\n")
	}
	for _, line := range m.chat {
		content.WriteString(chatStyle.Render("chat: ") + wordwrap.String(line, width-6) + "\n")
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) refresh() {
	m.writeLogContent()
	m.metaViewport.SetContent(writeMetadata(m.match, len(m.decisions), m.streaming))
}

// latestReasoning is the newest non-empty reasoning in the log.
func (m ConsoleUI) latestReasoning() string {
	for i := len(m.decisions) - 1; i >= 0; i-- {
		if r := m.decisions[i].Reasoning; r != "" {
			return r
		}
	}
	return ""
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadMatch()
}

func (m ConsoleUI) loadMatch() tea.Cmd {
	return func() tea.Msg {
		match, err := getMatch(m.client, m.config.APIBaseURL, m.matchID)
		if err != nil {
			return matchLoadedMsg{err: err}
		}
		records, err := listDecisions(m.client, m.config.APIBaseURL, m.matchID, decisionHistory)
		return matchLoadedMsg{match: match, decisions: records, err: err}
	}
}

// startStream opens the event stream in the background.
func (m *ConsoleUI) startStream() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.streaming = true
	// the stream outlives the request timeout of the shared client
	streamClient := &http.Client{Transport: m.client.Transport}
	ch := m.events
	baseURL := m.config.APIBaseURL
	id := m.matchID

	done := make(chan error, 1)
	m.done = done
	go func() {
		done <- listenToSSE(ctx, streamClient, baseURL, id, ch)
		close(done)
	}()
	return waitForEvent(ch, done)
}

func waitForEvent(ch <-chan events.Event, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return matchEventMsg{event: ev}
		case err := <-done:
			return streamClosedMsg{err: err}
		}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - logWidth - 6

		m.logViewport.Width = logWidth - 2
		m.logViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		switch msg.String() {
		case "q":
			m.showQuitModal = true
			return m, nil
		case "y":
			reasoning := m.latestReasoning()
			if reasoning == "" {
				m.status = "Nothing to copy yet"
				return m, nil
			}
			if err := m.copy(reasoning); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Copied latest reasoning"
			}
			return m, nil
		}

	case matchLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Failed to load match"
			m.refresh()
			return m, nil
		}
		m.match = msg.match
		m.decisions = msg.decisions
		m.status = "Following match"
		if m.match.Status != state.StatusRunning {
			m.status = "Match is over"
			m.refresh()
			return m, nil
		}
		cmd := m.startStream()
		m.refresh()
		return m, cmd

	case matchEventMsg:
		m.apply(msg.event)
		m.refresh()
		if msg.event.Type == events.EventTypeMatchFinished {
			m.stopStream()
			m.status = "Match is over"
			m.refresh()
			return m, nil
		}
		return m, waitForEvent(m.events, m.done)

	case streamClosedMsg:
		m.streaming = false
		if msg.err != nil {
			m.err = msg.err
		}
		m.status = "Event stream closed"
		m.refresh()
		return m, nil
	}

	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(vpCmd, mvCmd)
}

// apply folds one match event into the model.
func (m *ConsoleUI) apply(ev events.Event) {
	switch ev.Type {
	case events.EventTypeMatchStarted, events.EventTypeMatchFinished:
		if ev.Match != nil {
			m.match = ev.Match
		}
	case events.EventTypeTickDecided:
		if ev.Decision == nil {
			return
		}
		m.decisions = append(m.decisions, ev.Decision)
		if len(m.decisions) > decisionHistory {
			m.decisions = m.decisions[len(m.decisions)-decisionHistory:]
		}
		if m.match != nil {
			m.match.Iterations = ev.Decision.Iteration + 1
			if ev.Decision.Fallback {
				m.match.Fallbacks++
			}
		}
	case events.EventTypeChatSent:
		if ev.Message != "" {
			m.chat = append(m.chat, ev.Message)
		}
	}
}

func (m *ConsoleUI) stopStream() {
	m.streaming = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			m.stopStream()
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				m.stopStream()
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Stop Watching?"))
	content.WriteString("\n\n")
	content.WriteString("The match keeps running without the console.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			promptStyle.Render(m.status),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
