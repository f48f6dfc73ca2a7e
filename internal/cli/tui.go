package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/poster"
)

// Stage labels for the progress display.
var stageLabels = map[string]string{
	poster.StageGeocoding:        "Locating city",
	poster.StageLoadingTheme:     "Loading theme",
	poster.StageFetchingStreets:  "Fetching streets",
	poster.StageFetchingWater:    "Fetching water",
	poster.StageFetchingParks:    "Fetching parks",
	poster.StageRendering:        "Rendering base layers",
	poster.StageRenderingRoads:   "Drawing roads",
	poster.StageAddingTypography: "Adding typography",
	poster.StageSaving:           "Saving",
	poster.StageCompleted:        "Done",
}

const progressBarWidth = 40

type jobMsg struct{ job *job.Job }

type streamClosedMsg struct{}

// generateModel is the bubbletea model for the generate progress view.
type generateModel struct {
	req     poster.Request
	events  <-chan *job.Job
	current *job.Job
	aborted bool
}

func newGenerateModel(req poster.Request, events <-chan *job.Job) generateModel {
	return generateModel{req: req, events: events}
}

// waitEvent blocks on the next watcher snapshot.
func waitEvent(events <-chan *job.Job) tea.Cmd {
	return func() tea.Msg {
		j, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return jobMsg{job: j}
	}
}

func (m generateModel) Init() tea.Cmd {
	return waitEvent(m.events)
}

func (m generateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	case jobMsg:
		m.current = msg.job
		if msg.job.Status.Terminal() {
			return m, tea.Quit
		}
		return m, waitEvent(m.events)
	case streamClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m generateModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("PosterForge · %s, %s", m.req.City, m.req.Country)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("theme %s · radius %dm", m.req.Theme, m.req.Distance)))
	b.WriteString("\n\n")

	if m.current == nil {
		b.WriteString(StyleDim.Render("Queued..."))
		b.WriteString("\n")
		return b.String()
	}

	label := stageLabels[m.current.Stage]
	if label == "" {
		label = "Waiting for a worker"
	}
	b.WriteString(StyleValue.Render(label))
	b.WriteString("\n")
	b.WriteString(renderBar(m.current.Progress))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %3.0f%%", m.current.Progress*100)))
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render("q to abort"))
	b.WriteString("\n")
	return b.String()
}

func renderBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * progressBarWidth)
	return styleBarFilled.Render(strings.Repeat("█", filled)) +
		styleBarEmpty.Render(strings.Repeat("░", progressBarWidth-filled))
}
