package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Processor runs export steps in the order they were added.
type Processor struct {
	steps  []stepEntry
	names  map[string]bool
	logger zerolog.Logger
}

type stepEntry struct {
	step     Step
	required bool
}

// NewProcessor creates an empty processor.
func NewProcessor(logger *zerolog.Logger) *Processor {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Processor{names: make(map[string]bool), logger: l}
}

// AddStep appends a step. A failing required step aborts the run; a failing
// optional step is recorded in Output.Errors and the run continues.
func (p *Processor) AddStep(step Step, required bool) error {
	if step == nil {
		return fmt.Errorf("step cannot be nil")
	}
	name := step.GetName()
	if name == "" {
		return fmt.Errorf("step name cannot be empty")
	}
	if p.names[name] {
		return fmt.Errorf("step %s already added", name)
	}
	p.names[name] = true
	p.steps = append(p.steps, stepEntry{step: step, required: required})
	p.logger.Debug().Str("step", name).Str("type", string(step.GetType())).Bool("required", required).Msg("➕ added step")
	return nil
}

// Steps returns the step names in execution order.
func (p *Processor) Steps() []string {
	names := make([]string, 0, len(p.steps))
	for _, e := range p.steps {
		names = append(names, e.step.GetName())
	}
	return names
}

// Execute runs every step against a fresh Run.
func (p *Processor) Execute(ctx context.Context, req Request) (*Output, error) {
	if req.AppID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}
	startTime := time.Now()
	p.logger.Info().Str("app_id", req.AppID).Msg("🚀 starting export")

	run := &Run{Request: req, StartedAt: startTime}
	output := &Output{AppID: req.AppID, Run: run, StepsExecuted: []string{}}

	for _, entry := range p.steps {
		if err := ctx.Err(); err != nil {
			return output, err
		}
		name := entry.step.GetName()
		output.StepsExecuted = append(output.StepsExecuted, name)
		p.logger.Debug().Str("step", name).Msg("📍 executing step")

		if err := entry.step.Execute(ctx, run); err != nil {
			if entry.required || ctx.Err() != nil {
				p.logger.Error().Err(err).Str("step", name).Msg("❌ export step failed")
				return output, fmt.Errorf("error executing step %s: %w", name, err)
			}
			p.logger.Warn().Err(err).Str("step", name).Msg("⚠️ export step failed, continuing")
			output.Errors = append(output.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	output.AppName = run.AppName
	output.Files = run.Files
	if run.Report != nil {
		output.Items = len(run.Report.Items)
		output.Skipped = len(run.Report.Skipped)
		for _, failure := range run.Report.Failures {
			output.Errors = append(output.Errors, failure.Error())
		}
	}
	processingTime := time.Since(startTime)
	output.ProcessingTime = processingTime.Milliseconds()

	p.logger.Info().Str("app_id", req.AppID).Int("items", output.Items).Int("skipped", output.Skipped).
		Int("errors", len(output.Errors)).Dur("elapsed", processingTime).Msg("🏁 export completed")
	return output, nil
}
