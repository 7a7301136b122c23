package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"appdocu/pkg"
)

// Documentation is everything written to an app's documentation file.
type Documentation struct {
	AppName    string
	Info       pkg.AppInfo
	Dimensions []pkg.Dimension
	Measures   []pkg.Measure
	Variables  []pkg.Variable
	// Skipped counts items that could not be resolved.
	Skipped int
}

// Render prints the documentation: app info, then dimensions, measures and
// variables as bullet blocks.
func (d Documentation) Render(p *Printer) {
	p.KeyValues("App Infos", "   ", d.Info.Fields())

	p.Title("   ------- Master Dimensions ---------", "")
	rows := make([][]string, 0, len(d.Dimensions))
	for _, dim := range d.Dimensions {
		rows = append(rows, dim.Row())
	}
	p.Bullets(rows, pkg.DimensionFields)

	p.Title("   ------- Master Measures ---------", "")
	rows = make([][]string, 0, len(d.Measures))
	for _, m := range d.Measures {
		rows = append(rows, m.Row())
	}
	p.Bullets(rows, pkg.MeasureFields)

	p.Title("   ------- Variables ---------", "")
	rows = make([][]string, 0, len(d.Variables))
	for _, v := range d.Variables {
		rows = append(rows, v.Row())
	}
	p.Bullets(rows, pkg.VariableFields)

	if d.Skipped > 0 {
		p.Title(fmt.Sprintf("   ❗ %d item(s) skipped", d.Skipped), "")
	}
}

// DocumentationPath returns {dir}/{app name}-documentation.txt.
func DocumentationPath(dir, appName string) string {
	return filepath.Join(dir, FileName(appName)+"-documentation.txt")
}

// WriteDocumentation renders d into its file under dir in one write and
// returns the path.
func WriteDocumentation(dir string, d Documentation, opts ...Option) (string, error) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, append(opts, WithColors(nil))...)
	d.Render(p)
	if err := p.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := DocumentationPath(dir, d.AppName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write documentation: %w", err)
	}
	return path, nil
}

// FileName replaces characters that are unsafe in file names.
func FileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "app"
	}
	return name
}
