package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"convoqa/internal/dataset"
	"convoqa/internal/domain"
)

// AssistantPort is the TUI-facing subset of the assistant.
type AssistantPort interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	KnowledgeBase() (*domain.KnowledgeBase, error)
}

type tab int

const (
	tabAnswer tab = iota
	tabContext
	tabEncyclopedia
)

var tabNames = []string{"Answer", "Context", "Encyclopedia"}

type keyMap struct {
	Submit  key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Quit    key.Binding
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Submit, k.NextTab, k.PrevTab, k.Quit}
}

var keys = keyMap{
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
	NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the question-answering screen.
type Model struct {
	service  AssistantPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	overview string
	stats    string
	loadErr  error
	answer   *domain.Answer
	status   string
	tab      tab
	busy     bool
	ready    bool
}

// New creates a new TUI model. overview is a short description of the
// knowledge base shown under the title.
func New(service AssistantPort, overview string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Your question"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	m := Model{
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		help:     help.New(),
		overview: overview,
		status:   "Type your question and press Enter.",
	}
	kb, err := service.KnowledgeBase()
	if err != nil {
		m.loadErr = err
		m.status = "Knowledge base unavailable."
	} else {
		m.stats = dataset.StatsOf(kb).String()
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 4 + 1 + 1 + 1 + qh + 1 // header lines, tabs, status, help, input
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.input.Width = max(10, msg.Width-6)
		m.viewport.SetContent(m.renderTab())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.answer = msg.answer
			m.status = fmt.Sprintf("Answered %q", msg.answer.Question)
		}
		m.tab = tabAnswer
		m.viewport.SetContent(m.renderTab())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.NextTab):
			m.tab = (m.tab + 1) % tab(len(tabNames))
			m.viewport.SetContent(m.renderTab())
			return m, nil
		case key.Matches(msg, keys.PrevTab):
			m.tab = (m.tab - 1 + tab(len(tabNames))) % tab(len(tabNames))
			m.viewport.SetContent(m.renderTab())
			return m, nil
		case key.Matches(msg, keys.Submit):
			if m.loadErr != nil || m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = "Please enter a question."
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = "Searching for relevant information..."
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case msg.String() == "pgup" || msg.String() == "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(context.Background(), q)
		return answerMsg{answer: ans, err: err}
	}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("ConvoGPT · University QA")
	if m.loadErr != nil {
		body := errorStyle.Render("Error loading the knowledge base: " + m.loadErr.Error())
		return header + "\n\n" + body + "\n\n" + m.help.ShortHelpView([]key.Binding{keys.Quit})
	}
	sub := mutedStyle.Render(m.stats)
	overview := mutedStyle.Render(m.overview)
	tabs := m.renderTabBar()
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return strings.Join([]string{
		header, sub, overview, tabs, results, input, status,
		m.help.ShortHelpView(keys.bindings()),
	}, "\n")
}

func (m Model) renderTabBar() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(name)
		} else {
			parts[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderTab() string {
	if m.answer == nil {
		return "No question asked yet."
	}
	switch m.tab {
	case tabContext:
		return renderContext(m.answer)
	case tabEncyclopedia:
		return renderSummary(m.answer.Summary)
	}
	return renderAnswer(m.answer)
}

func renderAnswer(a *domain.Answer) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Question") + "\n")
	b.WriteString(a.Question + "\n\n")
	b.WriteString(labelStyle.Render("Answer") + "\n")
	b.WriteString(a.Text)
	return b.String()
}

func renderContext(a *domain.Answer) string {
	if a.Match == nil {
		if a.Kind == domain.AnswerCanned {
			return "Small talk; the knowledge base was not searched."
		}
		return "No matching context."
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Most Relevant Context"))
	b.WriteString(fmt.Sprintf("  row=%d score=%.3f\n\n", a.Match.Row.Index+1, a.Match.Score))
	for _, f := range a.Match.Row.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		b.WriteString(highlightStyle.Render(f.Name+": ") + f.Value + "\n")
	}
	return b.String()
}

func renderSummary(s *domain.Summary) string {
	if s == nil {
		return "No information found."
	}
	out := labelStyle.Render(s.Title) + "\n\n" + s.Extract
	if s.URL != "" {
		out += "\n\n" + mutedStyle.Render(s.URL)
	}
	return out
}

var (
	accent         = lipgloss.Color("#007BFF")
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	tabStyle       = lipgloss.NewStyle().Padding(0, 2)
	activeTabStyle = tabStyle.Copy().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
)
