package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/okian/formcoach/internal/config"
	"github.com/okian/formcoach/internal/domain/model"
	"github.com/okian/formcoach/internal/domain/sport"
)

func newSportsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sports",
		Short: "Print the sport pattern registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			renderSports(cmd.OutOrStdout(), registry)
			if problems := registry.Validate(); len(problems) > 0 {
				return fmt.Errorf("%d sport pattern problem(s) found", len(problems))
			}
			return nil
		},
	}
}

// renderSports writes one row per pattern with its weights and their sum.
func renderSports(w io.Writer, registry *sport.Registry) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)

	header := table.Row{"Key", "Name"}
	for _, d := range model.Dimensions {
		header = append(header, strings.ToUpper(string(d[:1]))+string(d[1:]))
	}
	header = append(header, "Sum", "OK")
	tbl.AppendHeader(header)

	for _, p := range registry.All() {
		row := table.Row{p.Key, p.DisplayName}
		for _, d := range model.Dimensions {
			row = append(row, fmt.Sprintf("%.2f", p.Weights.Of(d)))
		}
		sum := p.Weights.Sum()
		ok := "yes"
		if math.Abs(sum-1) > sport.WeightSumTolerance {
			ok = "NO"
		}
		row = append(row, fmt.Sprintf("%.3f", sum), ok)
		tbl.AppendRow(row)
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d sports (default %s)", registry.Len(), registry.DefaultKey())})
	tbl.Render()
}
