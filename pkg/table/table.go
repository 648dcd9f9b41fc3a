// Package table reads and drives ALV grid controls.
//
// A Grid wraps the scripting shell element of a grid view. All reads go
// through the backend on every call, so values reflect the live control,
// not a cached snapshot.
package table

import (
	"fmt"

	"github.com/scriptwizard-dev/sapwiz-runner/pkg/core"
)

// Grid is an ALV grid addressed by its shell element ID.
type Grid struct {
	backend core.Backend
	id      string
}

// New wraps the grid with the given scripting ID.
func New(backend core.Backend, id string) *Grid {
	return &Grid{backend: backend, id: id}
}

// ID returns the scripting ID of the wrapped grid.
func (g *Grid) ID() string {
	return g.id
}

// RowCount returns the total number of rows in the grid.
func (g *Grid) RowCount() (int, error) {
	return g.intProp("rowCount")
}

// VisibleRowCount returns the number of rows visible without scrolling.
func (g *Grid) VisibleRowCount() (int, error) {
	return g.intProp("visibleRowCount")
}

// ColumnNames returns the technical column names in display order.
func (g *Grid) ColumnNames() ([]string, error) {
	raw, err := g.backend.GetProperty(g.id, "columnOrder")
	if err != nil {
		return nil, g.propErr("columnOrder", err)
	}
	return toStringSlice(raw), nil
}

// ColumnTitles maps technical column names to their displayed titles.
func (g *Grid) ColumnTitles() (map[string]string, error) {
	names, err := g.ColumnNames()
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(names))
	for _, name := range names {
		raw, err := g.backend.Call(g.id, "getDisplayedColumnTitle", name)
		if err != nil {
			return nil, g.callErr("getDisplayedColumnTitle", err)
		}
		titles[name] = toString(raw)
	}
	return titles, nil
}

// CellValue returns the displayed value of one cell.
func (g *Grid) CellValue(row int, column string) (string, error) {
	raw, err := g.backend.Call(g.id, "getCellValue", row, column)
	if err != nil {
		return "", g.callErr("getCellValue", err)
	}
	return toString(raw), nil
}

// Rows reads every row of the grid, scrolling through firstVisibleRow when
// the grid holds more rows than are visible at once.
func (g *Grid) Rows() ([][]string, error) {
	total, err := g.RowCount()
	if err != nil {
		return nil, err
	}
	names, err := g.ColumnNames()
	if err != nil {
		return nil, err
	}

	visible, err := g.VisibleRowCount()
	if err != nil || visible <= 0 {
		visible = total
	}
	first, err := g.intProp("firstVisibleRow")
	if err != nil {
		first = 0
	}

	rows := make([][]string, 0, total)
	for row := 0; row < total; row++ {
		if row >= first+visible {
			if err := g.backend.SetProperty(g.id, "firstVisibleRow", row); err != nil {
				return nil, g.propErr("firstVisibleRow", err)
			}
			first = row
		}
		cells := make([]string, len(names))
		for i, name := range names {
			value, err := g.CellValue(row, name)
			if err != nil {
				return nil, err
			}
			cells[i] = value
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Records returns every row keyed by technical column name.
func (g *Grid) Records() ([]map[string]string, error) {
	names, err := g.ColumnNames()
	if err != nil {
		return nil, err
	}
	rows, err := g.Rows()
	if err != nil {
		return nil, err
	}

	records := make([]map[string]string, 0, len(rows))
	for _, cells := range rows {
		record := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(cells) {
				record[name] = cells[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// SelectRow selects a single row by index.
func (g *Grid) SelectRow(row int) error {
	if err := g.backend.SetProperty(g.id, "selectedRows", fmt.Sprint(row)); err != nil {
		return g.propErr("selectedRows", err)
	}
	return nil
}

// PressToolbarButton presses a button of the grid toolbar by function name.
func (g *Grid) PressToolbarButton(name string) error {
	if _, err := g.backend.Call(g.id, "pressToolbarButton", name); err != nil {
		return g.callErr("pressToolbarButton", err)
	}
	return nil
}

// DoubleClickCell double clicks a cell, which typically drills into the row.
func (g *Grid) DoubleClickCell(row int, column string) error {
	if _, err := g.backend.Call(g.id, "setCurrentCell", row, column); err != nil {
		return g.callErr("setCurrentCell", err)
	}
	if _, err := g.backend.Call(g.id, "doubleClickCurrentCell"); err != nil {
		return g.callErr("doubleClickCurrentCell", err)
	}
	return nil
}

func (g *Grid) intProp(name string) (int, error) {
	raw, err := g.backend.GetProperty(g.id, name)
	if err != nil {
		return 0, g.propErr(name, err)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, nil
	}
}

func (g *Grid) propErr(name string, err error) error {
	return core.ErrPropertyUnavailable.WithCause(err).WithDetails(map[string]interface{}{
		"id":       g.id,
		"property": name,
	})
}

func (g *Grid) callErr(method string, err error) error {
	return core.NewAutomationError(core.ErrCategoryAction, "grid_call_failed",
		fmt.Sprintf("grid call %s failed", method)).
		WithCause(err).
		WithDetails(map[string]interface{}{"id": g.id})
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = toString(item)
		}
		return out
	case nil:
		return nil
	default:
		return []string{toString(v)}
	}
}
