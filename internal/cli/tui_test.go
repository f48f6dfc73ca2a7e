package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/poster"
)

func testRequest() poster.Request {
	return poster.Request{City: "Venice", Country: "Italy", Theme: "feature_based", Distance: 12000}
}

func TestGenerateModelProgress(t *testing.T) {
	events := make(chan *job.Job, 2)
	m := newGenerateModel(testRequest(), events)

	j := job.New("abc", job.Request{City: "Venice"}, 60)
	j.Status = job.StatusProcessing
	j.Stage = poster.StageFetchingStreets
	j.Progress = 0.2

	next, cmd := m.Update(jobMsg{job: j})
	m = next.(generateModel)
	if m.current == nil || m.current.Stage != poster.StageFetchingStreets {
		t.Fatalf("current = %+v, want fetching_streets snapshot", m.current)
	}
	if cmd == nil {
		t.Fatal("expected follow-up command to wait for the next event")
	}

	view := m.View()
	if !strings.Contains(view, "Fetching streets") {
		t.Errorf("view missing stage label:\n%s", view)
	}
	if !strings.Contains(view, "20%") {
		t.Errorf("view missing percentage:\n%s", view)
	}
}

func TestGenerateModelQuitsOnTerminal(t *testing.T) {
	m := newGenerateModel(testRequest(), make(chan *job.Job))

	j := job.New("abc", job.Request{}, 60)
	j.Status = job.StatusCompleted
	j.Progress = 1

	next, cmd := m.Update(jobMsg{job: j})
	m = next.(generateModel)
	if cmd == nil {
		t.Fatal("expected quit command on terminal snapshot")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("cmd() = %v, want tea.Quit", msg)
	}
	if m.aborted {
		t.Error("terminal completion should not count as aborted")
	}
}

func TestGenerateModelAbort(t *testing.T) {
	m := newGenerateModel(testRequest(), make(chan *job.Job))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(generateModel)
	if !m.aborted {
		t.Error("ctrl+c should mark the model aborted")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestRenderBarBounds(t *testing.T) {
	for _, p := range []float64{-0.5, 0, 0.5, 1, 1.5} {
		bar := renderBar(p)
		if bar == "" {
			t.Errorf("renderBar(%v) empty", p)
		}
	}
}
