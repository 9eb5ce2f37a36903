package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/model"
)

const (
	fieldQuestions = iota
	fieldFeedback
	fieldMode
	fieldCount
	fieldStart
	fieldEnd
	fieldTotal
)

const previewGlyphs = 60

type settingsForm struct {
	draft  model.Settings
	data   *dataset.Dataset
	field  int
	inputs [fieldTotal]textinput.Model
	err    string
}

func newSettingsForm(settings model.Settings, data *dataset.Dataset) *settingsForm {
	f := &settingsForm{draft: settings, data: data}
	for i := fieldCount; i < fieldTotal; i++ {
		input := textinput.New()
		input.Prompt = ""
		input.CharLimit = 6
		input.Width = 7
		f.inputs[i] = input
	}
	f.syncInputs()
	return f
}

// syncInputs resets the number fields to the values held in the draft.
func (f *settingsForm) syncInputs() {
	r := f.draft.Range
	f.inputs[fieldCount].SetValue(strconv.Itoa(r.Count))
	f.inputs[fieldStart].SetValue(strconv.Itoa(r.Start + 1))
	f.inputs[fieldEnd].SetValue(strconv.Itoa(r.End + 1))
}

func (f *settingsForm) visible(field int) bool {
	switch field {
	case fieldCount:
		return f.draft.Range.Mode == model.RangeCount
	case fieldStart, fieldEnd:
		return f.draft.Range.Mode == model.RangeWindow
	}
	return true
}

func (f *settingsForm) focus(field int) tea.Cmd {
	for i := fieldCount; i < fieldTotal; i++ {
		f.inputs[i].Blur()
	}
	f.syncInputs()
	f.field = field
	if field >= fieldCount {
		return f.inputs[field].Focus()
	}
	return nil
}

func (f *settingsForm) move(delta int) tea.Cmd {
	next := f.field
	for {
		next = (next + delta + fieldTotal) % fieldTotal
		if f.visible(next) {
			return f.focus(next)
		}
	}
}

// update handles a key press. done reports the form closed; apply reports
// the draft should be stored.
func (f *settingsForm) update(msg tea.KeyMsg) (done, apply bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return true, false, nil
	case tea.KeyEnter:
		return true, true, nil
	case tea.KeyTab, tea.KeyDown:
		return false, false, f.move(1)
	case tea.KeyShiftTab, tea.KeyUp:
		return false, false, f.move(-1)
	}
	f.err = ""
	switch f.field {
	case fieldQuestions:
		f.draft.QuestionsPerSession = cycleChoice(f.draft.QuestionsPerSession, stepFor(msg))
	case fieldFeedback:
		if stepFor(msg) != 0 {
			f.draft.RealtimeFeedback = !f.draft.RealtimeFeedback
		}
	case fieldMode:
		if stepFor(msg) != 0 {
			if f.draft.Range.Mode == model.RangeCount {
				f.draft.Range.Mode = model.RangeWindow
			} else {
				f.draft.Range.Mode = model.RangeCount
			}
		}
	default:
		var inputCmd tea.Cmd
		f.inputs[f.field], inputCmd = f.inputs[f.field].Update(msg)
		f.applyInput()
		return false, false, inputCmd
	}
	return false, false, nil
}

// applyInput copies a valid number field into the draft. Invalid text is kept
// on screen but leaves the draft unchanged.
func (f *settingsForm) applyInput() {
	n := f.data.Len()
	value := f.inputs[f.field].Value()
	var (
		next model.PracticeRange
		ok   bool
	)
	switch f.field {
	case fieldCount:
		next, ok = f.draft.Range.WithCount(value, n)
	case fieldStart:
		next, ok = f.draft.Range.WithStart(value, n)
	case fieldEnd:
		next, ok = f.draft.Range.WithEnd(value, n)
	}
	if ok {
		f.draft.Range = next
	}
}

func (f *settingsForm) updateBlink(msg tea.Msg) tea.Cmd {
	if f.field < fieldCount {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.field], cmd = f.inputs[f.field].Update(msg)
	return cmd
}

func stepFor(msg tea.KeyMsg) int {
	switch msg.Type {
	case tea.KeyLeft:
		return -1
	case tea.KeyRight, tea.KeySpace:
		return 1
	}
	return 0
}

func cycleChoice(current, step int) int {
	if step == 0 {
		return current
	}
	idx := slices.Index(model.QuestionChoices, current)
	if idx < 0 {
		return model.QuestionChoices[0]
	}
	n := len(model.QuestionChoices)
	return model.QuestionChoices[(idx+step+n)%n]
}

func (f *settingsForm) view(width int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Settings"), "")
	row := func(field int, label, value string) {
		if !f.visible(field) {
			return
		}
		marker := "  "
		style := pendingStyle
		if f.field == field {
			marker = "› "
			style = currentStyle
		}
		lines = append(lines, marker+style.Render(fmt.Sprintf("%-22s", label))+value)
	}
	row(fieldQuestions, "Questions per session", "‹ "+strconv.Itoa(f.draft.QuestionsPerSession)+" ›")
	feedback := "off"
	if f.draft.RealtimeFeedback {
		feedback = "on"
	}
	row(fieldFeedback, "Realtime feedback", "‹ "+feedback+" ›")
	mode := "most common N"
	if f.draft.Range.Mode == model.RangeWindow {
		mode = "custom window"
	}
	row(fieldMode, "Range", "‹ "+mode+" ›")
	row(fieldCount, "Characters", f.inputs[fieldCount].View())
	row(fieldStart, "From position", f.inputs[fieldStart].View())
	row(fieldEnd, "To position", f.inputs[fieldEnd].View())

	n := f.data.Len()
	lines = append(lines, "", pendingStyle.Render(fmt.Sprintf("Practising %s of %d", rangeSummary(f.draft.Range, n), n)))
	preview := f.data.Range(f.draft.Range)
	more := ""
	if len(preview) > previewGlyphs {
		preview = preview[:previewGlyphs]
		more = " …"
	}
	lines = append(lines, wrapStyledRunes(buildStyledGlyphs(preview, correctStyle), max(width-4, 2))+more)
	if f.err != "" {
		lines = append(lines, "", incorrectStyle.Render(f.err))
	}
	lines = append(lines, "", footerStyle.Render("tab/↑↓ move  ←→ change  enter save  esc cancel"))
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
