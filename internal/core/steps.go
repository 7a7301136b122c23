package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"appdocu/internal/masteritems"
	"appdocu/internal/report"
	"appdocu/internal/storage"
	"appdocu/pkg"

	"github.com/rs/zerolog"
)

// LookupStep resolves the app name and composite app info over REST.
type LookupStep struct {
	name      string
	directory Directory
	nameOnly  bool
}

// NewLookupStep creates a lookup step.
func NewLookupStep(directory Directory) *LookupStep {
	return &LookupStep{name: "lookup", directory: directory}
}

// NewAppNameStep creates a lookup step that skips the app info.
func NewAppNameStep(directory Directory) *LookupStep {
	return &LookupStep{name: "app-name", directory: directory, nameOnly: true}
}

func (s *LookupStep) GetName() string   { return s.name }
func (s *LookupStep) GetType() StepType { return StepTypeLookup }

func (s *LookupStep) Execute(ctx context.Context, run *Run) error {
	name, err := s.directory.AppName(ctx, run.AppID)
	if err != nil {
		return fmt.Errorf("failed to look up app name: %w", err)
	}
	run.AppName = name
	if s.nameOnly {
		return nil
	}
	info, err := s.directory.AppInfo(ctx, run.AppID)
	if err != nil {
		return fmt.Errorf("failed to look up app info: %w", err)
	}
	run.Info = info
	return nil
}

// EnumerateStep opens the app document and collects its master items.
type EnumerateStep struct {
	name   string
	opener Opener
	logger *zerolog.Logger
}

// NewEnumerateStep creates an enumeration step.
func NewEnumerateStep(opener Opener, logger *zerolog.Logger) *EnumerateStep {
	return &EnumerateStep{name: "enumerate", opener: opener, logger: logger}
}

func (s *EnumerateStep) GetName() string   { return s.name }
func (s *EnumerateStep) GetType() StepType { return StepTypeEnumerate }

// Execute fills the typed results and the merged report. A list that cannot
// be read is recorded as a report failure and the other kinds are still
// collected.
func (s *EnumerateStep) Execute(ctx context.Context, run *Run) error {
	source, release, err := s.opener.Open(ctx, run.AppID)
	if err != nil {
		return fmt.Errorf("failed to open app %s: %w", run.AppID, err)
	}
	defer release()

	merged, err := masteritems.NewEnumerator(source, s.logger).MasterItems(ctx, masteritems.Selection{
		Columns:          run.Columns,
		IncludeVariables: run.IncludeVariables,
	})
	if merged != nil {
		run.Report = merged
		run.Dimensions = merged.Dimensions
		run.Measures = merged.Measures
		run.Variables = merged.Variables
	}
	return err
}

// TextStep renders the documentation to the terminal, if any, and writes the
// documentation file.
type TextStep struct {
	name     string
	config   Config
	terminal *report.Printer
}

// NewTextStep creates a text step. terminal may be nil.
func NewTextStep(config Config, terminal *report.Printer) *TextStep {
	return &TextStep{name: "text", config: config, terminal: terminal}
}

func (s *TextStep) GetName() string   { return s.name }
func (s *TextStep) GetType() StepType { return StepTypeRender }

func (s *TextStep) Execute(_ context.Context, run *Run) error {
	doc := report.Documentation{
		AppName:    run.AppName,
		Info:       run.Info,
		Dimensions: run.Dimensions.Items,
		Measures:   run.Measures.Items,
		Variables:  run.Variables.Items,
		Skipped:    len(run.Skipped()),
	}
	if s.terminal != nil {
		doc.Render(s.terminal)
		if err := s.terminal.Err(); err != nil {
			return fmt.Errorf("failed to print documentation: %w", err)
		}
	}
	path, err := report.WriteDocumentation(s.config.ExportDir, doc, report.WithMaxPerLine(s.config.MaxPerLine))
	if err != nil {
		return err
	}
	run.Files = append(run.Files, path)
	return nil
}

// WorkbookStep saves the master items as an xlsx workbook.
type WorkbookStep struct {
	name   string
	config Config
}

// NewWorkbookStep creates a workbook step.
func NewWorkbookStep(config Config) *WorkbookStep {
	return &WorkbookStep{name: "workbook", config: config}
}

func (s *WorkbookStep) GetName() string   { return s.name }
func (s *WorkbookStep) GetType() StepType { return StepTypeRender }

func (s *WorkbookStep) Execute(_ context.Context, run *Run) error {
	if run.Report == nil {
		return fmt.Errorf("no master items to write")
	}
	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	path := WorkbookPath(s.config.ExportDir, run.AppName)
	if err := report.SaveWorkbook(path, Sheets(run, s.config.Sheets)); err != nil {
		return err
	}
	run.Files = append(run.Files, path)
	return nil
}

// WorkbookPath returns {dir}/{app name}-masteritems.xlsx.
func WorkbookPath(dir, appName string) string {
	return filepath.Join(dir, report.FileName(appName)+"-masteritems.xlsx")
}

// Sheets lays out the workbook of a run: the merged list first, then one
// sheet per kind. The variables sheet is left out when variables were not
// requested.
func Sheets(run *Run, names SheetNames) []report.Sheet {
	sheets := []report.Sheet{{
		Name:   orName(names.MasterItems, "Master Items"),
		Header: masteritems.Header(run.Report.Columns),
		Rows:   run.Report.Rows(),
	}}

	rows := make([][]string, 0, len(run.Dimensions.Items))
	for _, d := range run.Dimensions.Items {
		rows = append(rows, d.Row())
	}
	sheets = append(sheets, report.Sheet{Name: orName(names.Dimensions, "Dimensions"), Header: pkg.DimensionFields, Rows: rows})

	rows = make([][]string, 0, len(run.Measures.Items))
	for _, m := range run.Measures.Items {
		rows = append(rows, m.Row())
	}
	sheets = append(sheets, report.Sheet{Name: orName(names.Measures, "Measures"), Header: pkg.MeasureFields, Rows: rows})

	if run.IncludeVariables {
		rows = make([][]string, 0, len(run.Variables.Items))
		for _, v := range run.Variables.Items {
			rows = append(rows, v.Row())
		}
		sheets = append(sheets, report.Sheet{Name: orName(names.Variables, "Variables"), Header: pkg.VariableFields, Rows: rows})
	}
	return sheets
}

// SnapshotStep saves the run to a snapshot store.
type SnapshotStep struct {
	name  string
	store storage.Store
}

// NewSnapshotStep creates a snapshot step. The name tells apart several
// snapshot steps in one processor.
func NewSnapshotStep(name string, store storage.Store) *SnapshotStep {
	return &SnapshotStep{name: name, store: store}
}

func (s *SnapshotStep) GetName() string   { return s.name }
func (s *SnapshotStep) GetType() StepType { return StepTypeStorage }

func (s *SnapshotStep) Execute(ctx context.Context, run *Run) error {
	if err := s.store.Save(ctx, NewSnapshot(run)); err != nil {
		return err
	}
	if f, ok := s.store.(interface{ Path(string) string }); ok {
		run.Files = append(run.Files, f.Path(run.AppID))
	}
	return nil
}

// NewSnapshot converts a run into its stored form.
func NewSnapshot(run *Run) *storage.Snapshot {
	snapshot := &storage.Snapshot{
		AppID:       run.AppID,
		AppName:     run.AppName,
		GeneratedAt: run.StartedAt.UTC(),
		Info:        run.Info,
		Dimensions:  nonNil(run.Dimensions.Items),
		Measures:    nonNil(run.Measures.Items),
		Variables:   nonNil(run.Variables.Items),
	}
	if run.Report != nil {
		snapshot.MasterItems = run.Report.Items
	}
	for _, skip := range run.Skipped() {
		snapshot.Skipped = append(snapshot.Skipped, skip.Error())
	}
	return snapshot
}

// TableStep prints the merged master items as a table.
type TableStep struct {
	name string
	out  io.Writer
}

// NewTableStep creates a table step writing to out.
func NewTableStep(out io.Writer) *TableStep {
	return &TableStep{name: "table", out: out}
}

func (s *TableStep) GetName() string   { return s.name }
func (s *TableStep) GetType() StepType { return StepTypeRender }

func (s *TableStep) Execute(_ context.Context, run *Run) error {
	if run.Report == nil {
		return fmt.Errorf("no master items to print")
	}
	return report.Table(s.out, masteritems.Header(run.Report.Columns), run.Report.Rows())
}

// ====================== Private Methods ======================

func orName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
