package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/crate/internal/ui"
)

// DialogKind specifies the type of dialog.
type DialogKind int

const (
	DialogConfirm DialogKind = iota
	DialogInput
)

// DialogResult is sent when the dialog is dismissed.
type DialogResult struct {
	Confirmed bool
	Value     string
	Tag       string // identifies which dialog this was
	Target    string // grid item the dialog acts on
}

// Dialog is a modal confirmation or input dialog.
type Dialog struct {
	Kind    DialogKind
	Title   string
	Message string
	Tag     string
	Target  string
	// Danger colours the confirm button as destructive.
	Danger  bool
	input   textinput.Model
	focused int // 0 = yes/input, 1 = no
	styles  ui.Styles
	visible bool
}

// NewConfirmDialog creates a Yes/No confirmation dialog. No is focused
// for dangerous dialogs.
func NewConfirmDialog(styles ui.Styles, title, message, tag, target string, danger bool) Dialog {
	d := Dialog{
		Kind:    DialogConfirm,
		Title:   title,
		Message: message,
		Tag:     tag,
		Target:  target,
		Danger:  danger,
		styles:  styles,
		visible: true,
	}
	if danger {
		d.focused = 1
	}
	return d
}

// NewInputDialog creates a text input dialog pre-filled with value.
func NewInputDialog(styles ui.Styles, title, value, tag, target string) Dialog {
	ti := textinput.New()
	ti.Placeholder = "Folder name"
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	ti.CharLimit = 120
	ti.Width = 44
	return Dialog{
		Kind:    DialogInput,
		Title:   title,
		Tag:     tag,
		Target:  target,
		input:   ti,
		styles:  styles,
		visible: true,
	}
}

// Visible returns whether the dialog is showing.
func (d Dialog) Visible() bool { return d.visible }

// Update handles key events for the dialog.
func (d Dialog) Update(msg tea.Msg) (Dialog, tea.Cmd) {
	if !d.visible {
		return d, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			d.visible = false
			return d, d.result(false)

		case "enter":
			d.visible = false
			return d, d.result(d.Kind == DialogInput || d.focused == 0)

		case "tab", "left", "right", "h", "l":
			if d.Kind == DialogConfirm {
				d.focused = 1 - d.focused
				return d, nil
			}

		case "y":
			if d.Kind == DialogConfirm {
				d.visible = false
				return d, d.result(true)
			}
		case "n":
			if d.Kind == DialogConfirm {
				d.visible = false
				return d, d.result(false)
			}
		}
	}

	if d.Kind == DialogInput {
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d Dialog) result(confirmed bool) tea.Cmd {
	res := DialogResult{Confirmed: confirmed, Tag: d.Tag, Target: d.Target}
	if d.Kind == DialogInput {
		res.Value = d.input.Value()
	}
	return func() tea.Msg { return res }
}

// View renders the dialog.
func (d Dialog) View() string {
	if !d.visible {
		return ""
	}
	t := d.styles.Theme

	title := d.styles.DialogTitle.Render(d.Title)
	var content string

	if d.Kind == DialogConfirm {
		message := lipgloss.NewStyle().Foreground(t.TextMuted).Width(48).Render(d.Message)
		yes := "  Yes  "
		no := "  No   "
		active := d.styles.DialogButton
		if d.Danger {
			active = active.Background(t.Error)
		}
		inactive := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		if d.focused == 0 {
			yes = active.Render(yes)
			no = inactive.Render(no)
		} else {
			yes = inactive.Render(yes)
			no = d.styles.DialogButton.Render(no)
		}
		buttons := lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no)
		content = title + "\n\n" + message + "\n\n" + buttons
	} else {
		content = title + "\n\n" + d.input.View()
	}

	return d.styles.Dialog.Render(content)
}
