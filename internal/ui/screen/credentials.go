package screen

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/component"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
	"go.uber.org/zap"
)

// CredentialsScreen prompts for email and password and runs one auth attempt.
// A failure stays on screen until the cooldown publishes showAuthMenu.
type CredentialsScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	mode     identity.Mode
	services *ui.Services

	form    *component.Form
	spinner spinner.Model
	helpBar *component.HelpBar

	busy    bool
	failure string
}

// NewCredentialsScreen creates the prompt for mode.
func NewCredentialsScreen(mode identity.Mode, services *ui.Services) *CredentialsScreen {
	keyMap := ui.DefaultKeyMap()

	form := component.NewForm().
		AddField("email", component.FieldTypeText, "Email", true, "you@example.com").
		AddField("password", component.FieldTypePassword, "Password", true, "")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.Muted

	return &CredentialsScreen{
		keyMap:   keyMap,
		mode:     mode,
		services: services,
		form:     form,
		spinner:  sp,
		helpBar:  component.NewHelpBar(keyMap.ContextualHelp(ui.RouteCredentials)...),
	}
}

// Init initializes the credentials screen
func (s *CredentialsScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update handles screen updates
func (s *CredentialsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.busy && s.failure == "" {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case ui.AuthResultMsg:
		s.busy = false
		if msg.Err == nil {
			return s, nil
		}
		s.failure = identity.Message(msg.Err)
		return s, tea.Batch(s.spinner.Tick, s.cooldown())

	case tea.KeyMsg:
		// Input is locked while a call or its cooldown is pending.
		if s.busy || s.failure != "" {
			return s, nil
		}
		if key.Matches(msg, s.keyMap.Back) {
			return s, ui.Navigate(ui.RouterMsg{To: ui.RouteBack})
		}

		var cmd tea.Cmd
		s.form, cmd = s.form.Update(msg)
		if !s.form.Submitted() {
			return s, cmd
		}
		if _, ok := s.form.Validate(); !ok {
			return s, nil
		}
		s.busy = true
		return s, tea.Batch(s.spinner.Tick, s.authenticate(s.form.GetValue("email"), s.form.GetValue("password")))
	}

	var cmd tea.Cmd
	s.form, cmd = s.form.Update(msg)
	return s, cmd
}

func (s *CredentialsScreen) authenticate(email, password string) tea.Cmd {
	mode := s.mode
	return func() tea.Msg {
		user, err := s.services.Auth.Authenticate(s.services.Context(), mode, strings.TrimSpace(email), password)
		return ui.AuthResultMsg{Mode: mode, User: user, Err: err}
	}
}

func (s *CredentialsScreen) cooldown() tea.Cmd {
	return func() tea.Msg {
		if err := s.services.Auth.Cooldown(s.services.Context()); err != nil {
			s.services.Logger.Debug("Auth cooldown interrupted", zap.Error(err))
		}
		return nil
	}
}

// Failure returns the message of the last failed attempt.
func (s *CredentialsScreen) Failure() string {
	return s.failure
}

// Busy reports whether an auth call is in flight.
func (s *CredentialsScreen) Busy() bool {
	return s.busy
}

// View renders the credentials screen
func (s *CredentialsScreen) View() string {
	var content strings.Builder
	content.WriteString(style.Title.Render(s.mode.String()))
	content.WriteString("\n")
	content.WriteString(s.form.View())

	switch {
	case s.failure != "":
		content.WriteString("\n")
		content.WriteString(style.ErrorText.Render(s.failure))
		content.WriteString("\n")
		content.WriteString(s.spinner.View() + " " + style.Muted.Render(retryText(s.services)))
	case s.busy:
		content.WriteString("\n")
		content.WriteString(s.spinner.View() + " " + style.Muted.Render("Authenticating..."))
	default:
		content.WriteString(s.helpBar.View())
	}
	return content.String()
}

// SetSize sets the screen dimensions
func (s *CredentialsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.form.SetWidth(min(width, 60))
	s.helpBar.SetWidth(width)
}

func retryText(services *ui.Services) string {
	secs := int(math.Ceil(services.Auth.CooldownDuration().Seconds()))
	return fmt.Sprintf("Retrying in %d seconds...", secs)
}
