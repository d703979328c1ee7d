// Package tui is an interactive terminal front end for the joke generator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/timvw/joke-bot/internal/jokes"
	"github.com/timvw/joke-bot/internal/session"
)

const (
	minTemperature  = 0.1
	maxTemperature  = 1.0
	temperatureStep = 0.1
)

// Generator produces one joke per request. *jokes.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req jokes.Request) (jokes.Result, error)
}

// messages
type jokeMsg struct {
	result jokes.Result
	err    error
}

// TUI runs the interactive joke bot.
type TUI struct {
	Generator Generator
	// Sessions tracks the joke counter and latest joke. Nil uses a private store.
	Sessions *session.Store
	// APIKey is handed to every request; empty uses the generator default.
	APIKey            string
	WriterTemperature float64
	CriticTemperature float64
	Theme             Theme
}

// model implements tea.Model
type tuiModel struct {
	gen       Generator
	ctx       context.Context
	sessions  *session.Store
	sessionID string
	apiKey    string
	styles    styles
	spinner   spinner.Model

	categories []string
	languages  []string
	cursor     int // selected category
	language   int // selected language

	writerTemp float64
	criticTemp float64

	// in-flight generation
	generating bool
	cancel     context.CancelFunc

	session session.Session
	message string
	failed  bool

	width  int
	height int
}

// Run starts the TUI and blocks until the user quits.
func (t *TUI) Run(ctx context.Context) error {
	m, err := newModel(ctx, t)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	if m.cancel != nil {
		m.cancel()
	}
	return err
}

func newModel(ctx context.Context, t *TUI) (*tuiModel, error) {
	if t.Generator == nil {
		return nil, errors.New("generator required")
	}
	store := t.Sessions
	if store == nil {
		store = session.NewStore(0)
	}

	// The key was resolved from configuration, so the bot starts right away.
	sess := store.Create()
	if _, err := store.SetKey(sess.ID, t.APIKey, true); err != nil {
		return nil, err
	}
	sess, err := store.Start(sess.ID)
	if err != nil {
		return nil, err
	}

	theme := t.Theme
	if theme == (Theme{}) {
		theme = DarkTheme()
	}
	st := newStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(st.warning))

	return &tuiModel{
		gen:        t.Generator,
		ctx:        ctx,
		sessions:   store,
		sessionID:  sess.ID,
		apiKey:     t.APIKey,
		styles:     st,
		spinner:    sp,
		categories: jokes.Categories(),
		languages:  jokes.Languages(),
		writerTemp: clampTemperature(t.WriterTemperature),
		criticTemp: clampTemperature(t.CriticTemperature),
		session:    sess,
	}, nil
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

// request builds the generation request from the current selection.
func (m *tuiModel) request() jokes.Request {
	return jokes.Request{
		Category:          m.categories[m.cursor],
		Language:          m.languages[m.language],
		WriterTemperature: m.writerTemp,
		CriticTemperature: m.criticTemp,
		APIKey:            m.apiKey,
	}
}

// generate returns a tea.Cmd running one writer-critic loop. The loop can be
// cancelled with Esc through m.cancel.
func (m *tuiModel) generate() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	gen := m.gen
	req := m.request()
	return func() tea.Msg {
		defer cancel()
		res, err := gen.Generate(ctx, req)
		return jokeMsg{result: res, err: err}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case jokeMsg:
		m.generating = false
		m.cancel = nil
		if msg.err != nil {
			m.failed = true
			if errors.Is(msg.err, context.Canceled) {
				m.message = "Generation cancelled"
			} else {
				m.message = fmt.Sprintf("Failed to generate joke: %v", msg.err)
			}
			return m, nil
		}
		sess, err := m.sessions.Record(m.sessionID, msg.result)
		if err != nil {
			m.failed = true
			m.message = err.Error()
			return m, nil
		}
		m.session = sess
		m.failed = false
		m.message = "New joke generated!"
		return m, nil
	}

	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "esc":
		if m.generating && m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.categories)-1 {
			m.cursor++
		}
	case "left", "h":
		m.language = (m.language + len(m.languages) - 1) % len(m.languages)
	case "right", "l":
		m.language = (m.language + 1) % len(m.languages)

	case "w":
		m.writerTemp = clampTemperature(m.writerTemp - temperatureStep)
	case "W":
		m.writerTemp = clampTemperature(m.writerTemp + temperatureStep)
	case "c":
		m.criticTemp = clampTemperature(m.criticTemp - temperatureStep)
	case "C":
		m.criticTemp = clampTemperature(m.criticTemp + temperatureStep)

	case "g", "enter":
		if m.generating {
			return m, nil
		}
		m.generating = true
		m.failed = false
		m.message = "AI agents are crafting your joke..."
		return m, tea.Batch(m.spinner.Tick, m.generate())

	case "r":
		if m.generating {
			return m, nil
		}
		if _, err := m.sessions.Reset(m.sessionID); err != nil {
			m.failed = true
			m.message = err.Error()
			return m, nil
		}
		sess, err := m.sessions.Start(m.sessionID)
		if err != nil {
			m.failed = true
			m.message = err.Error()
			return m, nil
		}
		m.session = sess
		m.failed = false
		m.message = "Bot reset successfully!"
	}
	return m, nil
}

// clampTemperature rounds t to one decimal and clamps it to the slider range.
func clampTemperature(t float64) float64 {
	t = math.Round(t*10) / 10
	return math.Max(minTemperature, math.Min(maxTemperature, t))
}

func (m *tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header: title + keybindings
	b.WriteString(m.styles.title.Render("🤡 Joke Bot"))
	b.WriteString("  ")
	b.WriteString(m.styles.dim.Render("↑↓=category  ←→=language  w/W=writer  c/C=critic  g/Enter=generate  Esc=cancel  r=reset  q=quit"))
	b.WriteString("\n\n")

	for i, c := range m.categories {
		line := "  " + jokes.Label(c)
		if i == m.cursor {
			b.WriteString(m.styles.selected.Render("> " + jokes.Label(c)))
		} else {
			b.WriteString(m.styles.text.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.styles.label.Render("Language: "))
	b.WriteString(m.styles.text.Render(m.languages[m.language]))
	b.WriteString(m.styles.label.Render("   Writer creativity: "))
	b.WriteString(m.styles.text.Render(fmt.Sprintf("%.1f", m.writerTemp)))
	b.WriteString(m.styles.label.Render("   Critic strictness: "))
	b.WriteString(m.styles.text.Render(fmt.Sprintf("%.1f", m.criticTemp)))
	b.WriteString(m.styles.label.Render("   Jokes generated: "))
	b.WriteString(m.styles.text.Render(fmt.Sprintf("%d", m.session.JokeCount)))
	b.WriteString("\n\n")

	if j := m.session.LatestJoke; j != nil {
		width := min(m.width-4, 80)
		card := m.styles.title.Render(jokes.Label(j.Category)) + "\n" +
			m.styles.text.Width(width-4).Render(strings.TrimSpace(j.Text)) + "\n" +
			m.styles.dim.Render("🌍 "+j.Language+"  ") + m.outcomeLabel(*j)
		b.WriteString(m.styles.card.Width(width).Render(card))
		b.WriteString("\n")
	}

	// Status message
	switch {
	case m.generating:
		b.WriteString(m.spinner.View() + " " + m.styles.warning.Render(m.message))
	case m.failed:
		b.WriteString(m.styles.err.Render(m.message))
	case m.message != "":
		b.WriteString(m.styles.dim.Render(m.message))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *tuiModel) outcomeLabel(res jokes.Result) string {
	if res.Outcome == jokes.OutcomeApproved {
		return m.styles.approved.Render(fmt.Sprintf("approved after %d critique(s)", res.Critiques))
	}
	return m.styles.warning.Render(fmt.Sprintf("best effort after %d critiques", res.Critiques))
}
