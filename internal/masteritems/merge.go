package masteritems

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"appdocu/pkg"
)

// Column names one field of the merged master item report.
type Column string

const (
	ColumnID          Column = "ID"
	ColumnTitle       Column = "Title"
	ColumnLabel       Column = "Label"
	ColumnDescription Column = "Description"
	ColumnExpression  Column = "Expression"
	ColumnTags        Column = "Tags"
	ColumnType        Column = "Type"
	ColumnItemType    Column = "ItemType"
)

// AllColumns is the default column set in report order.
var AllColumns = []Column{
	ColumnID, ColumnTitle, ColumnLabel, ColumnDescription,
	ColumnExpression, ColumnTags, ColumnType, ColumnItemType,
}

// ErrUnknownColumn is returned by ParseColumns for names outside AllColumns.
var ErrUnknownColumn = errors.New("unknown column")

// ParseColumns validates column names. Matching ignores case and surrounding
// space. No names selects AllColumns.
func ParseColumns(names []string) ([]Column, error) {
	if len(names) == 0 {
		return append([]Column(nil), AllColumns...), nil
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		col, ok := lookupColumn(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, name)
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return append([]Column(nil), AllColumns...), nil
	}
	return cols, nil
}

// Value extracts the column from an item.
func (c Column) Value(item pkg.MasterItem) string {
	switch c {
	case ColumnID:
		return item.ID
	case ColumnTitle:
		return item.Title
	case ColumnLabel:
		return item.Label
	case ColumnDescription:
		return item.Description
	case ColumnExpression:
		return item.Expression
	case ColumnTags:
		return item.Tags
	case ColumnType:
		return item.Type
	case ColumnItemType:
		return item.ItemType
	}
	return ""
}

// Header returns the column names as strings.
func Header(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}

// Rows projects items onto the selected columns.
func Rows(items []pkg.MasterItem, cols []Column) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.Value(item)
		}
		rows = append(rows, row)
	}
	return rows
}

// FromDimension normalizes a dimension. Label carries the field labels and
// Expression the field definitions. Empty lists become empty cells.
func FromDimension(d pkg.Dimension) pkg.MasterItem {
	return pkg.MasterItem{
		ID:          d.ID,
		Title:       d.Title,
		Label:       d.FieldLabels,
		Description: d.Description,
		Expression:  strings.Join(d.FieldDefs, ", "),
		Tags:        strings.Join(d.Tags, ", "),
		Type:        d.Kind(),
		ItemType:    pkg.ItemTypeDimension,
	}
}

// FromMeasure normalizes a measure.
func FromMeasure(m pkg.Measure) pkg.MasterItem {
	return pkg.MasterItem{
		ID:          m.ID,
		Title:       m.Title,
		Label:       m.Label,
		Description: m.Description,
		Expression:  m.Expression,
		Tags:        strings.Join(m.Tags, ", "),
		ItemType:    pkg.ItemTypeMeasure,
	}
}

// FromVariable normalizes a variable. Its definition becomes the expression.
func FromVariable(v pkg.Variable) pkg.MasterItem {
	return pkg.MasterItem{
		ID:         v.ID,
		Title:      v.Name,
		Expression: v.Definition,
		Tags:       strings.Join(v.Tags, ", "),
		ItemType:   pkg.ItemTypeVariable,
	}
}

// Selection controls what MasterItems collects.
type Selection struct {
	Columns          []Column
	IncludeVariables bool
}

// Report is the merged master item list of one app. The per-kind results
// it was built from are kept for views that need the typed items.
type Report struct {
	Columns  []Column
	Items    []pkg.MasterItem
	Skipped  []Skip
	Failures []error

	Dimensions Result[pkg.Dimension]
	Measures   Result[pkg.Measure]
	Variables  Result[pkg.Variable]
}

// Rows returns the report items projected onto its columns.
func (r *Report) Rows() [][]string {
	return Rows(r.Items, r.Columns)
}

// NewReport creates an empty report over cols. No columns selects AllColumns.
func NewReport(cols []Column) *Report {
	if len(cols) == 0 {
		cols = AllColumns
	}
	return &Report{Columns: cols, Items: []pkg.MasterItem{}}
}

// AddDimensions appends resolved dimensions and their skips.
func (r *Report) AddDimensions(res Result[pkg.Dimension]) {
	r.Dimensions.Items = append(r.Dimensions.Items, res.Items...)
	r.Dimensions.Skipped = append(r.Dimensions.Skipped, res.Skipped...)
	for _, d := range res.Items {
		r.Items = append(r.Items, FromDimension(d))
	}
	r.Skipped = append(r.Skipped, res.Skipped...)
}

// AddMeasures appends resolved measures and their skips.
func (r *Report) AddMeasures(res Result[pkg.Measure]) {
	r.Measures.Items = append(r.Measures.Items, res.Items...)
	r.Measures.Skipped = append(r.Measures.Skipped, res.Skipped...)
	for _, m := range res.Items {
		r.Items = append(r.Items, FromMeasure(m))
	}
	r.Skipped = append(r.Skipped, res.Skipped...)
}

// AddVariables appends variables and their skips.
func (r *Report) AddVariables(res Result[pkg.Variable]) {
	r.Variables.Items = append(r.Variables.Items, res.Items...)
	r.Variables.Skipped = append(r.Variables.Skipped, res.Skipped...)
	for _, v := range res.Items {
		r.Items = append(r.Items, FromVariable(v))
	}
	r.Skipped = append(r.Skipped, res.Skipped...)
}

// MasterItems merges dimensions, measures and, if selected, variables in that
// order. A kind whose list cannot be read is recorded in Failures and the
// remaining kinds are still collected. Only context cancellation aborts.
func (e *Enumerator) MasterItems(ctx context.Context, sel Selection) (*Report, error) {
	report := NewReport(sel.Columns)

	dims, err := e.DimensionsDetailed(ctx)
	if err := report.absorb(ctx, err); err != nil {
		return report, err
	}
	report.AddDimensions(dims)

	measures, err := e.MeasuresDetailed(ctx)
	if err := report.absorb(ctx, err); err != nil {
		return report, err
	}
	report.AddMeasures(measures)

	if sel.IncludeVariables {
		vars, err := e.VariablesDetailed(ctx)
		if err := report.absorb(ctx, err); err != nil {
			return report, err
		}
		report.AddVariables(vars)
	}

	e.logger.Info().Int("items", len(report.Items)).Int("skipped", len(report.Skipped)).
		Int("failures", len(report.Failures)).Msg("collected master items")
	return report, nil
}

// ====================== Private Methods ======================

func lookupColumn(name string) (Column, bool) {
	for _, c := range AllColumns {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// absorb records a list failure. It returns the context error when the
// failure came from cancellation.
func (r *Report) absorb(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	r.Failures = append(r.Failures, err)
	return nil
}
