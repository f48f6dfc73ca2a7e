package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/posterforge/posterforge/internal/config"
	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/job"
	"github.com/posterforge/posterforge/pkg/poster"
)

// generateCommand creates the generate command for one-shot poster
// creation from the terminal.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		themeName string
		distance  int
		dpi       int
		output    string
		themesDir string
		fontsDir  string
		noCache   bool
		plain     bool
	)

	cmd := &cobra.Command{
		Use:   "generate <city> <country>",
		Short: "Generate a poster for a city",
		Long: `Generate a map poster for a city and save it as a PNG.

The command geocodes the city, fetches streets, water and parks from
OpenStreetMap, and renders a print-ready poster. Fetched data is cached
locally, so re-rendering the same city with a different theme is fast.

Examples:

  posterforge generate Venice Italy
  posterforge generate Tokyo Japan --theme noir --distance 8000 -o tokyo.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := poster.NewRequest(args[0], args[1], themeName, distance, dpi)
			if err != nil {
				return err
			}

			cfg := config.Default()
			cfg.Poster.ThemesDir = themesDir
			cfg.Poster.FontsDir = fontsDir
			cfg.Poster.OutputDir = "."

			return c.runGenerate(cmd.Context(), cfg, req, output, noCache, plain)
		},
	}

	cmd.Flags().StringVarP(&themeName, "theme", "t", "", "color theme (default: built-in)")
	cmd.Flags().IntVarP(&distance, "distance", "d", 0, "map radius in meters (2000-50000)")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "output resolution in dots per inch (default 300)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <city>_<country>.png)")
	cmd.Flags().StringVar(&themesDir, "themes", "themes", "directory with theme JSON files")
	cmd.Flags().StringVar(&fontsDir, "fonts", "fonts", "directory with poster fonts")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVar(&plain, "plain", false, "log progress as lines instead of the progress UI")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, cfg config.Config, req poster.Request, output string, noCache, plain bool) error {
	s, err := c.buildStack(ctx, cfg, newCache(noCache))
	if err != nil {
		return err
	}
	defer s.close()

	track := newProgress(c.Logger)
	j, err := s.generator.Enqueue(ctx, req)
	if err != nil {
		return err
	}

	watcher := job.NewWatcher(s.jobs, 0, c.Logger)
	events := watcher.Watch(ctx, j.ID)

	var final *job.Job
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		printInfo("Generating poster for %s", req.Describe())
		final = c.followPlain(events)
	} else {
		final, err = followTUI(req, events)
		if err != nil {
			return err
		}
	}
	if final == nil {
		return errors.New(errors.ErrCodeInternal, "generation interrupted")
	}

	if final.Status == job.StatusFailed {
		printError("%s", final.Error)
		return errors.New(errors.Code(final.ErrorCode), "%s", final.Error)
	}

	path := s.artifacts.Path(final.ID)
	if output == "" {
		output = fmt.Sprintf("%s_%s.png",
			errors.SanitizeFilename(req.City),
			errors.SanitizeFilename(req.Country))
	}
	if err := os.Rename(path, output); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "moving poster to %s", output)
	}

	track.done(fmt.Sprintf("Generated poster for %s", req.Describe()))
	for _, w := range final.Warnings {
		printWarning("%s", w)
	}
	printSuccess("Poster saved")
	printFile(output)
	printKeyValue("Theme", req.Theme)
	printKeyValue("Radius", fmt.Sprintf("%d m", req.Distance))
	return nil
}

// followPlain logs each progress snapshot and returns the terminal one.
func (c *CLI) followPlain(events <-chan *job.Job) *job.Job {
	var last *job.Job
	for j := range events {
		last = j
		if j.Stage != "" {
			c.Logger.Info("progress", "stage", j.Stage, "percent", int(j.Progress*100))
		}
	}
	return last
}

// followTUI runs the interactive progress display and returns the
// terminal snapshot.
func followTUI(req poster.Request, events <-chan *job.Job) (*job.Job, error) {
	p := tea.NewProgram(newGenerateModel(req, events))
	m, err := p.Run()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "progress display failed")
	}
	model, ok := m.(generateModel)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "unexpected progress model")
	}
	if model.aborted {
		return nil, errors.New(errors.ErrCodeInternal, "generation interrupted")
	}
	return model.current, nil
}
