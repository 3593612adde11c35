package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

// FieldType represents the type of form field
type FieldType int

const (
	FieldTypeText FieldType = iota
	FieldTypeNumber
	FieldTypePassword
)

// FormField represents a single form field
type FormField struct {
	Name       string
	Label      string
	Type       FieldType
	Value      string
	Required   bool
	Validation func(string) error
	Error      string

	textInput textinput.Model
}

// Form is a vertical list of text inputs. Enter advances to the next field and
// submits on the last one.
type Form struct {
	fields     []FormField
	focusIndex int
	width      int
	submitted  bool

	// Styling
	labelStyle   lipgloss.Style
	inputStyle   lipgloss.Style
	focusedStyle lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewForm creates a new form component
func NewForm() *Form {
	palette := style.DefaultPalette()

	return &Form{
		labelStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true),

		inputStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		focusedStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary),

		errorStyle: lipgloss.NewStyle().
			Foreground(palette.Error),
	}
}

// AddField adds a field to the form
func (f *Form) AddField(name string, fieldType FieldType, label string, required bool, placeholder string) *Form {
	ti := textinput.New()
	ti.Width = 40
	ti.Placeholder = placeholder
	ti.Prompt = ""

	switch fieldType {
	case FieldTypePassword:
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	case FieldTypeNumber:
		if placeholder == "" {
			ti.Placeholder = "0"
		}
	}

	f.fields = append(f.fields, FormField{
		Name:      name,
		Label:     label,
		Type:      fieldType,
		Required:  required,
		textInput: ti,
	})

	if len(f.fields) == 1 {
		f.fields[0].textInput.Focus()
	}
	return f
}

// SetFieldValidation sets a validation function for a field
func (f *Form) SetFieldValidation(name string, validation func(string) error) *Form {
	for i := range f.fields {
		if f.fields[i].Name == name {
			f.fields[i].Validation = validation
			break
		}
	}
	return f
}

// Init implements the tea.Model shape.
func (f *Form) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles form input and updates
func (f *Form) Update(msg tea.Msg) (*Form, tea.Cmd) {
	if len(f.fields) == 0 {
		return f, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab":
			f.nextField()
			return f, nil
		case "shift+tab":
			f.prevField()
			return f, nil
		case "enter":
			if f.focusIndex == len(f.fields)-1 {
				f.submitted = true
			} else {
				f.nextField()
			}
			return f, nil
		}
	}

	field := &f.fields[f.focusIndex]
	var cmd tea.Cmd
	field.textInput, cmd = field.textInput.Update(msg)
	field.Value = field.textInput.Value()
	if _, ok := msg.(tea.KeyMsg); ok {
		field.Error = ""
	}
	return f, cmd
}

// Submitted reports whether enter was pressed on the last field. It resets the flag.
func (f *Form) Submitted() bool {
	s := f.submitted
	f.submitted = false
	return s
}

// View renders the form
func (f *Form) View() string {
	var content strings.Builder

	for i, field := range f.fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		content.WriteString(f.labelStyle.Render(label))
		content.WriteString("\n")

		fieldStyle := f.inputStyle
		if i == f.focusIndex {
			fieldStyle = f.focusedStyle
		}
		content.WriteString(fieldStyle.Render(field.textInput.View()))
		content.WriteString("\n")

		if field.Error != "" {
			content.WriteString(f.errorStyle.Render("⚠ " + field.Error))
			content.WriteString("\n")
		}
	}

	return content.String()
}

func (f *Form) focus(index int) {
	f.fields[f.focusIndex].textInput.Blur()
	f.focusIndex = index
	f.fields[f.focusIndex].textInput.Focus()
}

func (f *Form) nextField() {
	f.focus((f.focusIndex + 1) % len(f.fields))
}

func (f *Form) prevField() {
	f.focus((f.focusIndex - 1 + len(f.fields)) % len(f.fields))
}

// Validate validates all form fields and returns the first failing field's error.
func (f *Form) Validate() (string, bool) {
	first := ""
	for i := range f.fields {
		field := &f.fields[i]
		field.Error = ""

		if field.Required && strings.TrimSpace(field.Value) == "" {
			field.Error = field.Label + " is required"
		} else if field.Validation != nil {
			if err := field.Validation(field.Value); err != nil {
				field.Error = err.Error()
			}
		}
		if field.Error != "" && first == "" {
			first = field.Error
		}
	}
	return first, first == ""
}

// GetValue returns the value of a specific field
func (f *Form) GetValue(name string) string {
	for _, field := range f.fields {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

// SetWidth sets the form width
func (f *Form) SetWidth(width int) *Form {
	f.width = width
	inputWidth := width - 6 // padding and borders
	if inputWidth > 10 {
		for i := range f.fields {
			f.fields[i].textInput.Width = inputWidth
		}
	}
	return f
}
