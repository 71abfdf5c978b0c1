package internal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"countdown/internal/state"

	"github.com/charmbracelet/lipgloss"
)

const ringRadius = 6

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	arcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69")).
			Bold(true)

	bombStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	remainingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("69")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1).
			Margin(0, 1)

	buttonDisabledStyle = buttonStyle.Copy().
				BorderForeground(lipgloss.Color("238")).
				Foreground(lipgloss.Color("240"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(40).Render("Countdown"))
	sb.WriteString("\n\n")
	sb.WriteString(m.ringView())
	sb.WriteString("\n")
	sb.WriteString(remainingStyle.Render(formatRemaining(m.Status.Remaining)))
	sb.WriteString("\n\n")
	sb.WriteString(controlsView(state.ControlsFor(m.Status)))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(m.help.View(m.keys)))

	content := lipgloss.JoinVertical(lipgloss.Center, strings.Split(sb.String(), "\n")...)
	if m.Width == 0 || m.Height == 0 {
		return content
	}
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, content)
}

// ringView draws the progress circle with the center display laid over it.
func (m *Model) ringView() string {
	progress := m.Status.ProgressToNextSecond()
	grid := ringGrid(progress, ringRadius)
	center := m.centerLines()

	trackStyle := lipgloss.NewStyle().Foreground(grey(progress * 0.6))
	rows := make([]string, len(grid))
	mid := len(grid) / 2
	top := mid - len(center)/2

	for y, row := range grid {
		var line strings.Builder
		text := ""
		if i := y - top; i >= 0 && i < len(center) {
			text = center[i]
		}
		start, end := len(row), len(row)
		if text != "" {
			w := lipgloss.Width(text)
			start = (len(row) - w) / 2
			end = start + w
		}
		for x := 0; x < len(row); x++ {
			if x == start {
				line.WriteString(text)
			}
			if x >= start && x < end {
				continue
			}
			switch row[x] {
			case cellArc:
				line.WriteString(arcStyle.Render("●"))
			case cellTrack:
				line.WriteString(trackStyle.Render("•"))
			default:
				line.WriteByte(' ')
			}
		}
		rows[y] = line.String()
	}
	return strings.Join(rows, "\n")
}

func (m *Model) centerLines() []string {
	s := m.Status
	switch s.Kind {
	case state.Ready:
		return []string{readyStyle.Render("Ready")}
	case state.Reached:
		return []string{bombStyle.Render(pulseText("Bomb!!", m.frame))}
	}

	progress := s.ProgressToNextSecond()
	next := lipgloss.NewStyle().Bold(true).Foreground(grey(progress)).
		Render(fmt.Sprintf("%d", s.NextSecond()))
	prev := ""
	if p, ok := s.PreviousSecond(); ok {
		prev = lipgloss.NewStyle().Foreground(grey(1 - progress)).Render(fmt.Sprintf("%d", p))
	}
	label := ""
	if s.Kind == state.Pausing {
		label = pausedStyle.Render("paused")
	}
	return []string{prev, next, label}
}

func controlsView(c state.Controls) string {
	button := func(label string, enabled bool) string {
		if enabled {
			return buttonStyle.Render(label)
		}
		return buttonDisabledStyle.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		button("Start", c.Start),
		button("Pause", c.Pause),
		button("Resume", c.Resume),
		button("Reset", c.Reset),
	)
}

type cell uint8

const (
	cellEmpty cell = iota
	cellTrack
	cellArc
)

// ringGrid lays a circle of the given radius onto a character grid. Cells
// are twice as tall as they are wide, so x is stretched by two. The arc
// starts at twelve o'clock and runs clockwise over progress of the circle.
func ringGrid(progress float64, radius int) [][]cell {
	w, h := 4*radius+1, 2*radius+1
	grid := make([][]cell, h)
	for y := range grid {
		grid[y] = make([]cell, w)
	}

	steps := 16 * radius
	for i := 0; i < steps; i++ {
		frac := float64(i) / float64(steps)
		angle := frac * 2 * math.Pi
		x := int(math.Round(float64(2*radius) + 2*float64(radius)*math.Sin(angle)))
		y := int(math.Round(float64(radius) - float64(radius)*math.Cos(angle)))
		if frac < progress {
			grid[y][x] = cellArc
		} else if grid[y][x] == cellEmpty {
			grid[y][x] = cellTrack
		}
	}
	return grid
}

// grey maps an intensity in [0,1] onto the 256-colour grey ramp.
func grey(a float64) lipgloss.Color {
	a = math.Max(0, math.Min(1, a))
	return lipgloss.Color(fmt.Sprintf("%d", 232+int(math.Round(a*23))))
}

// pulseText widens and narrows the letter spacing of s in a loop.
func pulseText(s string, frame int) string {
	spacing := []int{0, 1, 2, 1}[frame%4]
	if spacing == 0 {
		return s
	}
	return strings.Join(strings.Split(s, ""), strings.Repeat(" ", spacing))
}

func formatRemaining(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d.%03ds", ms/1000, ms%1000)
}
