package report

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
)

// MaxColWidth caps table cells; longer values wrap.
const MaxColWidth = 60

// Table writes rows under a header as aligned columns.
func Table(w io.Writer, header []string, rows [][]string) error {
	table := uitable.New()
	table.MaxColWidth = MaxColWidth
	table.Wrap = true
	table.AddRow(cells(header)...)
	for _, row := range rows {
		table.AddRow(cells(row)...)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
