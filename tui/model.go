package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"awgctl/sequence"
	"awgctl/sequencer"
	"awgctl/sim"
)

// stepInterval paces the simulated sequencer clock.
const stepInterval = 500 * time.Millisecond

type Model struct {
	Seq    *sequencer.Model
	Device *sim.Device // nil when driving real hardware

	cursor   int // selected element (1-based)
	status   string
	quitting bool
}

type tickMsg time.Time

func NewModel(seq *sequencer.Model, device *sim.Device) Model {
	return Model{
		Seq:    seq,
		Device: device,
		cursor: 1,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(stepInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.setStatus(m.Seq.Stop())
			return m, tea.Quit

		case "j", "down":
			if m.cursor < m.Seq.Table().Len() {
				m.cursor++
			}

		case "k", "up":
			if m.cursor > 1 {
				m.cursor--
			}

		case " ":
			var err error
			if m.Seq.State() == sequencer.Running {
				err = m.Seq.Stop()
			} else {
				err = m.Seq.Run()
			}
			m.setStatus(err)

		case "enter":
			m.setStatus(m.Seq.SetPosition(m.cursor))

		case "L":
			var err error
			if m.Seq.InLazyMode() {
				err = m.Seq.ExitLazyMode()
			} else {
				err = m.Seq.EnterLazyMode()
			}
			m.setStatus(err)

		case "0":
			m.setStatus(m.Seq.SetInfinite(m.cursor))

		case "+", "=":
			m.bumpRepeat(1)

		case "-", "_":
			m.bumpRepeat(-1)

		case "t":
			if m.Device != nil {
				m.Device.Trigger()
				m.status = "trigger sent"
			}

		case "e":
			if m.Device != nil {
				m.Device.Event()
				m.status = "event sent"
			}
		}

	case tickMsg:
		if m.Device != nil {
			m.Device.Step()
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m *Model) setStatus(err error) {
	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
}

func (m *Model) bumpRepeat(delta int) {
	el, err := m.Seq.Table().Element(m.cursor)
	if err != nil {
		m.setStatus(err)
		return
	}
	count := el.Repeat + delta
	if count < 1 {
		m.setStatus(m.Seq.SetInfinite(m.cursor))
		return
	}
	m.setStatus(m.Seq.SetFinite(m.cursor, count))
}

func (m Model) View() string {
	if m.quitting {
		// A stop that failed on the way out still gets reported
		if m.status != "" {
			return m.status + "\n"
		}
		return ""
	}

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#c874f0"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6b5a82"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#f08060"))
	playStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#f0e060"))

	runState := "STOP"
	if m.Seq.State() == sequencer.Running {
		runState = "RUN "
	}
	lazy := ""
	if m.Seq.InLazyMode() {
		lazy = "  LAZY"
	}

	devicePos := m.Seq.Position()
	if m.Device != nil {
		if p, err := m.Device.Position(); err == nil {
			devicePos = p
		}
	}

	header := headerStyle.Render(fmt.Sprintf("awgctl  %s  element:%02d%s", runState, devicePos, lazy))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	// Sequence table
	out.WriteString("  el  repeat  trig  goto  jump  waveforms\n")
	table := m.Seq.Table()
	for pos := 1; pos <= table.Len(); pos++ {
		el, err := table.Element(pos)
		if err != nil {
			continue
		}

		cursor := "  "
		if pos == m.cursor {
			cursor = "> "
		}
		play := " "
		if pos == devicePos {
			play = "▶"
		}

		repeat := fmt.Sprintf("%6d", el.Repeat)
		if el.Repeat == sequence.RepeatInfinite {
			repeat = "     ∞"
		}
		trig := "    "
		if el.TriggerWait {
			trig = "wait"
		}

		line := fmt.Sprintf("%s%s %2d  %s  %s  %4d  %4d  %s",
			cursor, play, pos, repeat, trig, el.Goto, el.EventJump, waveformSummary(el))
		if pos == devicePos {
			line = playStyle.Render(line)
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("j/k:element  enter:jump  space:run/stop  L:lazy  0:infinite  +/-:repeat  t:trigger  e:event  q:quit"))

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.status))
	}

	return out.String()
}

func waveformSummary(el sequence.Element) string {
	if len(el.Waveforms) == 0 {
		return "-"
	}
	channels := make([]int, 0, len(el.Waveforms))
	for ch := range el.Waveforms {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	parts := make([]string, len(channels))
	for i, ch := range channels {
		name := el.Waveforms[ch]
		if len(name) > 12 {
			name = name[:12]
		}
		parts[i] = fmt.Sprintf("ch%d:%s", ch, name)
	}
	return strings.Join(parts, " ")
}
