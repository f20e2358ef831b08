package main

import (
	"fmt"
	"strconv"

	"compartmentalize/internal/protection"
	"compartmentalize/internal/synth"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// idsCmd shows the protection IDs each compartment will receive
var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Show the protection IDs assigned to each compartment",
	Args:  cobra.NoArgs,
	RunE:  showIDs,
}

func showIDs(cmd *cobra.Command, args []string) error {
	_, assignments, err := synth.Plan(cfg, descriptionPath)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{
			strconv.Itoa(a.Compartment.Ordinal),
			a.Compartment.Name,
			a.Primary.Hex(),
			a.Shadow.Hex(),
			strconv.Itoa(len(a.Compartment.Sources)),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "COMPARTMENT", "PRIMARY", "SHADOW", "SOURCES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%d of %d compartments\n", len(assignments), protection.Capacity(cfg.Layout))
	return nil
}
