package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"shipwright/internal/preflight"
	"shipwright/internal/release"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func stepRows(steps []release.StepResult) [][]string {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, stepRow(fmt.Sprintf("%d", s.Ordinal), s))
		for _, c := range s.Children {
			rows = append(rows, stepRow(fmt.Sprintf("%d.%d", s.Ordinal, c.Ordinal), c))
		}
	}
	return rows
}

func stepRow(ordinal string, s release.StepResult) []string {
	label := release.Label(s.Name)
	if strings.Contains(ordinal, ".") {
		label = "  " + label
	}
	outcome := string(s.Outcome)
	if s.Outcome == "" {
		outcome = string(s.State)
	}
	if s.Tolerated() {
		outcome += " (tolerated)"
	}
	duration := ""
	if s.Outcome == release.OutcomeExecuted || s.Outcome == release.OutcomeFailed {
		duration = s.Duration.Round(time.Millisecond).String()
	}
	return []string{ordinal, label, outcome, duration}
}

func renderStepTable(steps []release.StepResult) string {
	return renderTable(
		[]string{"#", "Step", "Outcome", "Duration"},
		stepRows(steps),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

func renderPreflightTable(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		switch {
		case !r.Passed && r.Optional:
			status = "warn"
		case !r.Passed:
			status = "fail"
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}
