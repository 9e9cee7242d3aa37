package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// tableView accumulates rows for one CLI table. Columns marked numeric
// right-align so counts and sizes line up under their headers.
type tableView struct {
	titles  []string
	numeric map[int]bool
	rows    []table.Row
}

func newTableView(titles ...string) *tableView {
	return &tableView{titles: titles, numeric: make(map[int]bool)}
}

// alignNumeric marks zero-based column indexes as numeric.
func (v *tableView) alignNumeric(columns ...int) *tableView {
	for _, column := range columns {
		v.numeric[column] = true
	}
	return v
}

func (v *tableView) addRow(cells ...string) {
	row := make(table.Row, len(v.titles))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	v.rows = append(v.rows, row)
}

func (v *tableView) render() string {
	if len(v.titles) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(tableStyle())

	header := make(table.Row, len(v.titles))
	for i, title := range v.titles {
		header[i] = title
	}
	tw.AppendHeader(header)
	tw.AppendRows(v.rows)

	configs := make([]table.ColumnConfig, len(v.titles))
	for i := range v.titles {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if v.numeric[i] {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// tableStyle picks rounded box drawing on terminals and plain ASCII when
// output is piped or redirected.
func tableStyle() table.Style {
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return table.StyleRounded
	}
	return table.StyleDefault
}
