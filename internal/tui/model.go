// Package tui renders the live dashboard: engine state, light level, panel
// LEDs and key bindings for the five panel buttons.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lightorchestralab/lightorchestra/internal/controller"
	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
	"github.com/lightorchestralab/lightorchestra/internal/service"
)

// refreshInterval paces the status polling. The engine runs its own loop;
// the dashboard only snapshots it.
const refreshInterval = 100 * time.Millisecond

type tickMsg time.Time

type Model struct {
	svc      service.Service
	status   service.Status
	quitting bool
}

func NewModel(svc service.Service) Model {
	return Model{svc: svc, status: svc.Status()}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.svc.Press(controller.ButtonRec)
		case "p":
			m.svc.Press(controller.ButtonPlay)
		case "s":
			m.svc.Press(controller.ButtonStop)
		case "w":
			m.svc.Press(controller.ButtonSave)
		case "l":
			m.svc.Press(controller.ButtonLoad)
		case "c":
			m.svc.CycleScale()
		}

	case tickMsg:
		m.status = m.svc.Status()
		return m, tick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.status

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	stateStyle := lipgloss.NewStyle().Foreground(stateColor(st.State)).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ledOnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	header := headerStyle.Render("light orchestra")

	state := fmt.Sprintf("%s  %3d bpm  %d beats/bar  quantize %dms  loop %v",
		stateStyle.Render(st.State), st.BPM, st.BeatsPerBar, st.QuantizeMS, st.Loop)

	track := fmt.Sprintf("%s %d events  %s %dms  %s %s",
		labelStyle.Render("take:"), st.Events,
		labelStyle.Render("length:"), st.TrackLenMS,
		labelStyle.Render("pattern:"), st.Pattern)

	light := fmt.Sprintf("%s %5.1f%% %s  %s %s",
		labelStyle.Render("light:"), st.Light, meter(st.Light),
		labelStyle.Render("scale:"), st.Scale)

	note := labelStyle.Render("note:") + " -"
	if st.NotePitch != sequencer.NoPitch {
		note = fmt.Sprintf("%s %d (level %.2f)", labelStyle.Render("note:"), st.NotePitch, st.NoteLevel)
	}

	var leds []string
	for _, name := range []string{"REC", "PLAY"} {
		if st.LEDs[name] {
			leds = append(leds, ledOnStyle.Render("●"+name))
		} else {
			leds = append(leds, dimStyle.Render("○"+name))
		}
	}

	help := dimStyle.Render("r:record  p:play  s:stop  w:save  l:load  c:scale  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(state)
	out.WriteString("\n")
	out.WriteString(track)
	out.WriteString("\n")
	out.WriteString(light)
	out.WriteString("\n")
	out.WriteString(note)
	out.WriteString("\n\n")
	out.WriteString(strings.Join(leds, "  "))
	out.WriteString("\n\n")
	out.WriteString(help)
	out.WriteString("\n")

	return out.String()
}

func stateColor(state string) lipgloss.Color {
	switch state {
	case "RECORDING":
		return lipgloss.Color("196")
	case "PLAYING":
		return lipgloss.Color("46")
	default:
		return lipgloss.Color("245")
	}
}

// meter renders a ten-cell bar for the light level.
func meter(pct float64) string {
	filled := int(pct / 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", 10-filled) + "]"
}
