package masteritems

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"appdocu/internal/engine"
	"appdocu/pkg"

	"github.com/rs/zerolog"
)

// Source produces layouts from an open document. *engine.Document implements it.
type Source interface {
	Materialize(ctx context.Context, definition any) (json.RawMessage, error)
	GetNamedObject(ctx context.Context, kind engine.ObjectKind, id string) (json.RawMessage, error)
}

// Summary is one entry of a master item list before details are fetched.
type Summary struct {
	ID    string
	Title string
	Tags  []string
}

// Skip records an item left out of a detailed enumeration.
type Skip struct {
	Kind  engine.ObjectKind
	ID    string
	Title string
	Err   error
}

func (s Skip) Error() string {
	if s.ID == "" {
		return fmt.Sprintf("%s %q skipped: %v", s.Kind, s.Title, s.Err)
	}
	return fmt.Sprintf("%s %q (%s) skipped: %v", s.Kind, s.Title, s.ID, s.Err)
}

// Result holds the items of a detailed enumeration and the ones that had to
// be skipped.
type Result[T any] struct {
	Items   []T
	Skipped []Skip
}

// Partial reports whether any item was skipped.
func (r Result[T]) Partial() bool {
	return len(r.Skipped) > 0
}

// Enumerator lists the master items of one open document.
type Enumerator struct {
	source Source
	logger zerolog.Logger
}

// NewEnumerator creates an enumerator reading from source.
func NewEnumerator(source Source, logger *zerolog.Logger) *Enumerator {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Enumerator{source: source, logger: l}
}

// Dimensions returns the master dimension list. An app without dimensions
// yields an empty slice.
func (e *Enumerator) Dimensions(ctx context.Context) ([]Summary, error) {
	var layout dimensionListLayout
	if err := e.materialize(ctx, "dimension list", DimensionListDefinition(), &layout); err != nil {
		return nil, err
	}
	return summaries(layout.DimensionList.Items), nil
}

// Measures returns the master measure list.
func (e *Enumerator) Measures(ctx context.Context) ([]Summary, error) {
	var layout measureListLayout
	if err := e.materialize(ctx, "measure list", MeasureListDefinition(), &layout); err != nil {
		return nil, err
	}
	return summaries(layout.MeasureList.Items), nil
}

// Variables returns the app variables.
func (e *Enumerator) Variables(ctx context.Context) ([]pkg.Variable, error) {
	var layout variableListLayout
	if err := e.materialize(ctx, "variable list", VariableListDefinition(), &layout); err != nil {
		return nil, err
	}
	vars := make([]pkg.Variable, 0, len(layout.VariableList.Items))
	for _, item := range layout.VariableList.Items {
		vars = append(vars, pkg.Variable{
			ID:         item.Info.ID,
			Name:       item.Name,
			Definition: item.Definition,
			Tags:       firstTags(item.Meta.Tags, item.Data.Tags),
		})
	}
	return vars, nil
}

// DimensionsDetailed fetches every master dimension's layout. Items that
// cannot be resolved are skipped and reported in the result.
func (e *Enumerator) DimensionsDetailed(ctx context.Context) (Result[pkg.Dimension], error) {
	list, err := e.Dimensions(ctx)
	if err != nil {
		return Result[pkg.Dimension]{}, err
	}
	return detailed(ctx, e, engine.KindDimension, list, buildDimension)
}

// MeasuresDetailed fetches every master measure's layout.
func (e *Enumerator) MeasuresDetailed(ctx context.Context) (Result[pkg.Measure], error) {
	list, err := e.Measures(ctx)
	if err != nil {
		return Result[pkg.Measure]{}, err
	}
	return detailed(ctx, e, engine.KindMeasure, list, buildMeasure)
}

// VariablesDetailed returns the variables that carry an id. The variable
// list already holds name and definition so no per-item request is made.
func (e *Enumerator) VariablesDetailed(ctx context.Context) (Result[pkg.Variable], error) {
	vars, err := e.Variables(ctx)
	if err != nil {
		return Result[pkg.Variable]{}, err
	}
	res := Result[pkg.Variable]{Items: make([]pkg.Variable, 0, len(vars))}
	for _, v := range vars {
		if v.ID == "" {
			skip := Skip{Kind: engine.KindVariable, Title: v.Name, Err: errMissingID}
			e.logger.Warn().Str("title", v.Name).Msg("skipping variable without qId")
			res.Skipped = append(res.Skipped, skip)
			continue
		}
		res.Items = append(res.Items, v)
	}
	return res, nil
}

// ====================== Private Methods ======================

var errMissingID = errors.New("item has no qId")

func (e *Enumerator) materialize(ctx context.Context, what string, definition any, into any) error {
	layout, err := e.source.Materialize(ctx, definition)
	if err != nil {
		e.logger.Error().Err(err).Str("list", what).Msg("failed to materialize list")
		return fmt.Errorf("%s: %w", what, err)
	}
	if err := decodeLayout(layout, into); err != nil {
		return fmt.Errorf("decoding %s layout: %w", what, err)
	}
	return nil
}

func summaries(items []listItem) []Summary {
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		out = append(out, Summary{
			ID:    item.Info.ID,
			Title: firstNonEmpty(item.Meta.Title, item.Data.Title),
			Tags:  firstTags(item.Meta.Tags, item.Data.Tags),
		})
	}
	return out
}

type buildFunc[T any] func(Summary, json.RawMessage) (T, error)

// detailed resolves each summary one at a time. A failing item is skipped; a
// cancelled context stops the walk and returns what was gathered so far.
func detailed[T any](ctx context.Context, e *Enumerator, kind engine.ObjectKind, list []Summary, build buildFunc[T]) (Result[T], error) {
	res := Result[T]{Items: make([]T, 0, len(list))}
	for _, summary := range list {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		title := firstNonEmpty(summary.Title, noTitle)
		if summary.ID == "" {
			e.logger.Warn().Str("kind", string(kind)).Str("title", title).Msg("skipping item without qId")
			res.Skipped = append(res.Skipped, Skip{Kind: kind, Title: title, Err: errMissingID})
			continue
		}

		layout, err := e.source.GetNamedObject(ctx, kind, summary.ID)
		if err == nil {
			var item T
			item, err = build(summary, layout)
			if err == nil {
				res.Items = append(res.Items, item)
				continue
			}
		}
		e.logger.Warn().Err(err).Str("kind", string(kind)).Str("item_id", summary.ID).Str("title", title).
			Msg("failed to get layout, skipping item")
		res.Skipped = append(res.Skipped, Skip{Kind: kind, ID: summary.ID, Title: title, Err: err})
	}
	return res, nil
}

func buildDimension(summary Summary, raw json.RawMessage) (pkg.Dimension, error) {
	var layout dimensionLayout
	if err := decodeLayout(raw, &layout); err != nil {
		return pkg.Dimension{}, fmt.Errorf("decoding dimension layout: %w", err)
	}
	labels := layout.Dim.LabelExpression
	if labels == "" && len(layout.Dim.FieldLabels) > 0 {
		labels = pkg.JoinList("Field Labels", layout.Dim.FieldLabels)
	}
	return pkg.Dimension{
		ID:          summary.ID,
		Title:       firstNonEmpty(summary.Title, layout.Meta.Title, noTitle),
		Description: firstNonEmpty(string(layout.Dim.Description), layout.Meta.Description),
		Tags:        firstTags(layout.Meta.Tags, summary.Tags),
		FieldDefs:   firstTags(layout.Dim.FieldDefs),
		FieldLabels: labels,
		Grouping:    firstNonEmpty(layout.Dim.Grouping, "N"),
	}, nil
}

func buildMeasure(summary Summary, raw json.RawMessage) (pkg.Measure, error) {
	var layout measureLayout
	if err := decodeLayout(raw, &layout); err != nil {
		return pkg.Measure{}, fmt.Errorf("decoding measure layout: %w", err)
	}
	return pkg.Measure{
		ID:          summary.ID,
		Title:       firstNonEmpty(summary.Title, layout.Meta.Title, noTitle),
		Tags:        firstTags(layout.Meta.Tags, summary.Tags),
		Expression:  layout.Measure.Def,
		Label:       firstNonEmpty(layout.Measure.LabelExpression, layout.Measure.Label),
		Description: firstNonEmpty(string(layout.Measure.Description), layout.Meta.Description),
	}, nil
}
