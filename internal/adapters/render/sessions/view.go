package sessions

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/tale-cli/internal/domain"
)

var errUnexpectedModel = errors.New("session list renderer returned an unexpected model")

type RenderOptions struct {
	Now      time.Time
	Selected domain.SessionID
}

// listModel is a single-shot bubbletea model: its first message renders the
// adventure list and quits, so the program never takes input.
type listModel struct {
	adventures []domain.Adventure
	opts       RenderOptions
	output     string
}

type listReadyMsg struct{}

func (m listModel) Init() tea.Cmd {
	return func() tea.Msg { return listReadyMsg{} }
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(listReadyMsg); !ok {
		return m, nil
	}
	m.output = renderView(m.adventures, m.opts, newStyles())
	return m, tea.Quit
}

func (m listModel) View() string {
	return m.output
}

// Render produces the styled adventure list for stdout. It runs the model
// headless so lipgloss picks up the same color profile as interactive views.
func Render(adventures []domain.Adventure, opts RenderOptions) (string, error) {
	program := tea.NewProgram(
		listModel{adventures: adventures, opts: opts},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("render session list: %w", err)
	}

	done, ok := final.(listModel)
	if !ok {
		return "", errUnexpectedModel
	}
	return done.View(), nil
}

func renderView(adventures []domain.Adventure, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Adventures"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(adventures))),
	}

	if len(adventures) == 0 {
		lines = append(lines, s.empty.Render("No adventures yet. Start one with `tale new`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, adventure := range adventures {
		lines = append(lines, s.section.Render(renderAdventure(adventure, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAdventure(adventure domain.Adventure, opts RenderOptions, s styles) string {
	name := s.name.Render(adventure.Title)
	if adventure.SessionID == opts.Selected {
		name = s.selected.Render("* ") + name
	}

	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, name, "  ", s.header.Render(string(adventure.SessionID))),
		s.detail.Render(mediaLine(adventure.Media, s)),
	}

	if adventure.LastMessagePreview != "" {
		parts = append(parts, s.preview.Render(adventure.LastMessagePreview))
	}
	if !adventure.UpdatedAt.IsZero() {
		parts = append(parts, s.timestamp.Render("updated "+formatUpdated(adventure.UpdatedAt, opts.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func mediaLine(media domain.MediaState, s styles) string {
	if media.Unavailable {
		return s.warning.Render("media unavailable for now")
	}

	world := jobLabel("world", media.Status.World, media.URLs.World, s)
	character := jobLabel("character", media.Status.Character, media.URLs.Character, s)
	return lipgloss.JoinHorizontal(lipgloss.Top, world, "  ", character)
}

func jobLabel(kind string, state domain.JobState, url string, s styles) string {
	switch state {
	case domain.JobReady:
		if url == "" {
			return s.ready.Render(kind + ": ready")
		}
		return s.ready.Render(kind + ": " + url)
	case domain.JobFailed:
		return s.failed.Render(kind + ": failed (regenerate available)")
	default:
		return s.pending.Render(kind + ": generating…")
	}
}

func formatUpdated(updatedAt, now time.Time) string {
	if now.IsZero() {
		return updatedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return updatedAt.Format("02 Jan 15:04")
	}
}
