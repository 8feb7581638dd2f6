package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZaguanLabs/pdftl"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))
)

const controlsHelp = "←/→ n/p: page  g/G: first/last  :: jump  l: language  s: swap  r/R: retry  q: quit"

// chromeLines is the number of rows used by the header and footer.
const chromeLines = 4

// stateMsg carries a navigator snapshot into the program.
type stateMsg pdftl.ViewState

// resultMsg reports the outcome of a navigator call made by a key press.
type resultMsg struct {
	state pdftl.ViewState
	err   error
}

type viewer struct {
	ctx   context.Context
	nav   *pdftl.Navigator
	docID string
	start int
	title string

	state   pdftl.ViewState
	shown   pdftl.CacheKey // page and languages whose text is in the viewport
	spinner spinner.Model
	text    viewport.Model
	jump    textinput.Model
	jumping bool
	notice  string
	fatal   error
	width   int
	height  int
}

func newViewer(ctx context.Context, nav *pdftl.Navigator, docID string, start int, title string) viewer {
	jump := textinput.New()
	jump.Prompt = "Go to page: "
	jump.CharLimit = 6

	return viewer{
		ctx:     ctx,
		nav:     nav,
		docID:   docID,
		start:   start,
		title:   title,
		state:   nav.State(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		text:    viewport.New(80, 24-chromeLines),
		jump:    jump,
		width:   80,
		height:  24,
	}
}

// view runs the interactive viewer until the user quits.
func (a *app) view(ctx context.Context, docID, pdfID string, start int, title string) error {
	logger := a.logger
	if !a.cfg.verbose {
		// Log lines would tear the alternate screen.
		logger = slog.New(slog.DiscardHandler)
	}

	var program atomic.Pointer[tea.Program]
	nav := pdftl.NewNavigator(a.pageService(ctx),
		pdftl.WithLanguages(a.langs),
		pdftl.WithLogger(logger),
		pdftl.WithProgressReporter(a.reporterFor(ctx, pdfID)),
		pdftl.WithOnChange(func(vs pdftl.ViewState) {
			if p := program.Load(); p != nil {
				p.Send(stateMsg(vs))
			}
		}),
	)
	defer func() {
		nav.Close()
		nav.Wait()
	}()

	p := tea.NewProgram(newViewer(ctx, nav, docID, start, title), tea.WithAltScreen(), tea.WithContext(ctx))
	program.Store(p)

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if v, ok := final.(viewer); ok && v.fatal != nil {
		return a.notFound(ctx, pdfID, title, v.fatal)
	}
	return nil
}

func (m viewer) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.open())
}

func (m viewer) open() tea.Cmd {
	return m.do(func(ctx context.Context) (*pdftl.PageContent, error) {
		return m.nav.Open(ctx, m.docID, m.start)
	})
}

// do runs a navigator call off the update loop.
func (m viewer) do(fn func(context.Context) (*pdftl.PageContent, error)) tea.Cmd {
	nav, ctx := m.nav, m.ctx
	return func() tea.Msg {
		_, err := fn(ctx)
		return resultMsg{state: nav.State(), err: err}
	}
}

func (m viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.text.Width = msg.Width
		m.text.Height = max(1, msg.Height-chromeLines)
		m.shown = pdftl.CacheKey{}
		m.apply(m.state)
		return m, nil

	case stateMsg:
		m.apply(pdftl.ViewState(msg))
		return m, nil

	case resultMsg:
		m.apply(msg.state)
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, pdftl.ErrDocumentNotFound):
			m.fatal = msg.err
			return m, tea.Quit
		case errors.Is(msg.err, pdftl.ErrPageOutOfRange):
			m.notice = "No such page"
		case errors.Is(msg.err, pdftl.ErrInvalidLanguage):
			m.notice = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.updateKey(msg)
	}

	return m, nil
}

func (m viewer) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "right", "n":
		return m, m.do(m.nav.NextPage)
	case "left", "p":
		return m, m.do(m.nav.PreviousPage)
	case "g", "home":
		return m, m.do(m.nav.FirstPage)
	case "G", "end":
		return m, m.do(m.nav.LastPage)
	case "r":
		return m, m.do(m.nav.Retry)
	case "R":
		return m, m.do(m.nav.ClearCacheAndRetry)
	case ":":
		m.jumping = true
		m.jump.Reset()
		return m, m.jump.Focus()
	case "l":
		langs := m.nav.Languages()
		langs.Target = pdftl.NextLanguage(langs.Target)
		if langs.Target == langs.Source {
			langs.Target = pdftl.NextLanguage(langs.Target)
		}
		return m, m.setLanguages(langs)
	case "s":
		swapped, ok := m.nav.Languages().Swap()
		if !ok {
			m.notice = "Cannot swap while the source language is auto-detected"
			return m, nil
		}
		return m, m.setLanguages(swapped)
	}

	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	return m, cmd
}

func (m viewer) setLanguages(langs pdftl.LanguagePair) tea.Cmd {
	return m.do(func(ctx context.Context) (*pdftl.PageContent, error) {
		return m.nav.SetLanguages(ctx, langs)
	})
}

func (m viewer) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.jump.Blur()
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		m.jump.Blur()
		page, err := strconv.Atoi(strings.TrimSpace(m.jump.Value()))
		if err != nil {
			m.notice = "Not a page number"
			return m, nil
		}
		return m, m.do(func(ctx context.Context) (*pdftl.PageContent, error) {
			return m.nav.JumpToPage(ctx, page)
		})
	}

	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

// apply adopts vs unless a newer snapshot has already been seen.
func (m *viewer) apply(vs pdftl.ViewState) {
	if vs.Seq < m.state.Seq {
		return
	}
	m.state = vs

	if vs.Status != pdftl.StatusReady || vs.Content == nil {
		return
	}
	key := pdftl.NewCacheKey(vs.Page, vs.Languages)
	if m.shown == key {
		return
	}

	style := lipgloss.NewStyle().Width(max(m.text.Width, 1))
	if pdftl.IsRTL(vs.Languages.Target) {
		style = style.Align(lipgloss.Right)
	}
	m.text.SetContent(style.Render(vs.Content.TranslatedText))
	m.text.GotoTop()
	m.shown = key
}

func (m viewer) View() string {
	var sb strings.Builder

	nav := m.state.Navigation
	total := "?"
	if nav.TotalPages > 0 {
		total = strconv.Itoa(nav.TotalPages)
	}
	langs := m.state.Languages
	status := fmt.Sprintf("Page %d/%s | %s → %s %s | %s",
		m.state.Page, total,
		pdftl.GetLanguageName(langs.Source),
		pdftl.GetLanguageFlag(langs.Target), pdftl.GetLanguageName(langs.Target),
		m.state.Status,
	)
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(statusStyle.Render(status))
	sb.WriteString("\n\n")

	switch m.state.Status {
	case pdftl.StatusLoading:
		fmt.Fprintf(&sb, "%s Translating page %d...", m.spinner.View(), m.state.Page)
	case pdftl.StatusError:
		sb.WriteString(errorStyle.Render(m.state.ErrorMessage()))
		sb.WriteString("\n\nPress r to retry, R to clear the cache and retry.")
	case pdftl.StatusReady:
		sb.WriteString(m.text.View())
	default:
		sb.WriteString("No document open.")
	}
	sb.WriteString("\n\n")

	switch {
	case m.jumping:
		sb.WriteString(m.jump.View())
	case m.notice != "":
		sb.WriteString(noticeStyle.Render(m.notice))
	default:
		sb.WriteString(controlsStyle.Render(controlsHelp))
	}

	return sb.String()
}
