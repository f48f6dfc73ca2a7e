package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/posterforge/posterforge/pkg/theme"
)

// themesCommand creates the themes command listing available color
// profiles.
func (c *CLI) themesCommand() *cobra.Command {
	var themesDir string

	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List available color themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := theme.NewStore(themesDir, c.Logger)
			details := store.All()

			fmt.Println(StyleTitle.Render("Available themes"))

			rows := [][]string{
				{theme.DefaultName + " (built-in)", theme.Default().Description},
			}
			for _, d := range details {
				if d.ID == theme.DefaultName {
					rows[0] = []string{d.ID, d.Description}
					continue
				}
				rows = append(rows, []string{d.ID, d.Description})
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(StyleDim).
				Headers("ID", "Description").
				Rows(rows...)
			fmt.Println(t)
			return nil
		},
	}

	cmd.Flags().StringVar(&themesDir, "themes", "themes", "directory with theme JSON files")
	return cmd
}
