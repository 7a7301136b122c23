package core

import (
	"context"
	"time"

	"appdocu/internal/masteritems"
	"appdocu/pkg"
)

// Step is one stage of an export run.
type Step interface {
	Execute(ctx context.Context, run *Run) error
	GetName() string
	GetType() StepType
}

// StepType groups steps by what they do.
type StepType string

const (
	StepTypeLookup    StepType = "lookup"
	StepTypeEnumerate StepType = "enumerate"
	StepTypeRender    StepType = "render"
	StepTypeStorage   StepType = "storage"
)

// Directory is the REST side an export needs.
type Directory interface {
	AppName(ctx context.Context, appID string) (string, error)
	AppInfo(ctx context.Context, appID string) (pkg.AppInfo, error)
}

// Opener opens the engine document of an app. The returned func releases
// the connection.
type Opener interface {
	Open(ctx context.Context, appID string) (masteritems.Source, func(), error)
}

// Request is the input of one export run.
type Request struct {
	AppID            string               `json:"app_id"`
	IncludeVariables bool                 `json:"include_variables"`
	Columns          []masteritems.Column `json:"columns"`
}

// Run is the state shared by the steps of one export.
type Run struct {
	Request
	StartedAt  time.Time
	AppName    string
	Info       pkg.AppInfo
	Dimensions masteritems.Result[pkg.Dimension]
	Measures   masteritems.Result[pkg.Measure]
	Variables  masteritems.Result[pkg.Variable]
	Report     *masteritems.Report
	Files      []string
}

// Skipped lists every item left out of the run.
func (r *Run) Skipped() []masteritems.Skip {
	if r.Report == nil {
		return nil
	}
	return r.Report.Skipped
}

// Output is the result of a processor execution.
type Output struct {
	AppID          string   `json:"app_id"`
	AppName        string   `json:"app_name"`
	Files          []string `json:"files,omitempty"`
	Items          int      `json:"items"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
	StepsExecuted  []string `json:"steps_executed"`
	ProcessingTime int64    `json:"processing_time_ms"`
	Run            *Run     `json:"-"`
}

// Config holds what the standard steps need.
type Config struct {
	ExportDir  string
	MaxPerLine int
	Sheets     SheetNames
}

// SheetNames names the workbook sheets.
type SheetNames struct {
	MasterItems string
	Dimensions  string
	Measures    string
	Variables   string
}
