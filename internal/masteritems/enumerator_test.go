package masteritems

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"appdocu/internal/engine"
	"appdocu/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	lists    map[string]string
	listErrs map[string]error
	objects  map[string]string
	objErrs  map[string]error
	fetched  []string
	cancel   context.CancelFunc
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lists:    map[string]string{},
		listErrs: map[string]error{},
		objects:  map[string]string{},
		objErrs:  map[string]error{},
	}
}

func (f *fakeSource) Materialize(_ context.Context, definition any) (json.RawMessage, error) {
	def := definition.(map[string]any)
	typ := def["qInfo"].(map[string]any)["qType"].(string)
	if err := f.listErrs[typ]; err != nil {
		return nil, err
	}
	layout, ok := f.lists[typ]
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(layout), nil
}

func (f *fakeSource) GetNamedObject(_ context.Context, kind engine.ObjectKind, id string) (json.RawMessage, error) {
	key := string(kind) + "/" + id
	f.fetched = append(f.fetched, key)
	if f.cancel != nil {
		f.cancel()
	}
	if err := f.objErrs[key]; err != nil {
		return nil, err
	}
	return json.RawMessage(f.objects[key]), nil
}

func TestEmptyListsYieldEmptySlices(t *testing.T) {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[]}}`
	e := NewEnumerator(src, nil)

	dims, err := e.Dimensions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, dims)
	assert.Empty(t, dims)

	measures, err := e.Measures(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, measures)
	assert.Empty(t, measures)

	vars, err := e.Variables(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, vars)
	assert.Empty(t, vars)
}

func TestListFailureIsWrapped(t *testing.T) {
	src := newFakeSource()
	src.listErrs["MeasureList"] = engine.ErrMaterialize
	e := NewEnumerator(src, nil)

	_, err := e.Measures(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMaterialize)
	assert.Contains(t, err.Error(), "measure list")
}

func TestSummariesFallBackToData(t *testing.T) {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[
		{"qInfo":{"qId":"d1"},"qMeta":{"title":"Region","tags":["geo"]}},
		{"qInfo":{"qId":"d2"},"qData":{"title":"Product","tags":["catalog"]}}
	]}}`
	dims, err := NewEnumerator(src, nil).Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{ID: "d1", Title: "Region", Tags: []string{"geo"}},
		{ID: "d2", Title: "Product", Tags: []string{"catalog"}},
	}, dims)
}

func TestDimensionsDetailed(t *testing.T) {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[
		{"qInfo":{"qId":"d1"},"qMeta":{"title":"Region"}},
		{"qInfo":{"qId":"d2"},"qMeta":{"title":"Calendar"}}
	]}}`
	src.objects["dimension/d1"] = `{"qMeta":{"tags":["geo"]},"qDim":{"qFieldDefs":["Region"],"qFieldLabels":["Sales Region"],"descriptionExpression":{"qStringExpression":{"qExpr":"Where it was sold"}}}}`
	src.objects["dimension/d2"] = `{"qDim":{"qGrouping":"H","qFieldDefs":["Year","Month"],"qLabelExpression":"='Calendar'"},"qMeta":{"description":"Drill down"}}`

	res, err := NewEnumerator(src, nil).DimensionsDetailed(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Partial())
	require.Len(t, res.Items, 2)

	assert.Equal(t, pkg.Dimension{
		ID:          "d1",
		Title:       "Region",
		Description: "Where it was sold",
		Tags:        []string{"geo"},
		FieldDefs:   []string{"Region"},
		FieldLabels: "Sales Region",
		Grouping:    "N",
	}, res.Items[0])
	assert.Equal(t, "single", res.Items[0].Kind())

	assert.Equal(t, "Drill down", res.Items[1].Description)
	assert.Equal(t, "='Calendar'", res.Items[1].FieldLabels)
	assert.Equal(t, []string{}, res.Items[1].Tags)
	assert.Equal(t, "multi", res.Items[1].Kind())
	assert.Equal(t, []string{"dimension/d1", "dimension/d2"}, src.fetched)
}

func TestMeasureFetchErrorIsSkipped(t *testing.T) {
	src := newFakeSource()
	src.lists["MeasureList"] = `{"qMeasureList":{"qItems":[
		{"qInfo":{"qId":"m1"},"qMeta":{"title":"Missing"}},
		{"qInfo":{"qId":"m2"},"qMeta":{"title":"Revenue","tags":["finance"]}}
	]}}`
	notFound := &engine.RPCError{Code: 2, Message: "not found", Parameter: "qId"}
	src.objErrs["measure/m1"] = errors.Join(engine.ErrMaterialize, notFound)
	src.objects["measure/m2"] = `{"qMeasure":{"qDef":"Sum(Sales)","qLabel":"Revenue","descriptionExpression":"Total sales"}}`

	res, err := NewEnumerator(src, nil).MeasuresDetailed(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, pkg.Measure{
		ID:          "m2",
		Title:       "Revenue",
		Tags:        []string{"finance"},
		Expression:  "Sum(Sales)",
		Label:       "Revenue",
		Description: "Total sales",
	}, res.Items[0])

	require.True(t, res.Partial())
	require.Len(t, res.Skipped, 1)
	skip := res.Skipped[0]
	assert.Equal(t, engine.KindMeasure, skip.Kind)
	assert.Equal(t, "m1", skip.ID)
	assert.Equal(t, "Missing", skip.Title)
	var rpcErr *engine.RPCError
	require.ErrorAs(t, skip.Err, &rpcErr)
	assert.Equal(t, 2, rpcErr.Code)
	assert.Contains(t, skip.Error(), `measure "Missing" (m1) skipped`)
}

func TestItemsWithoutIDAreSkipped(t *testing.T) {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[{"qMeta":{}}]}}`
	src.lists["VariableList"] = `{"qVariableList":{"qItems":[{"qName":"vOrphan"},{"qInfo":{"qId":"v1"},"qName":"vYear","qDefinition":"2024"}]}}`
	e := NewEnumerator(src, nil)

	dims, err := e.DimensionsDetailed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dims.Items)
	require.Len(t, dims.Skipped, 1)
	assert.Equal(t, noTitle, dims.Skipped[0].Title)
	assert.ErrorIs(t, dims.Skipped[0].Err, errMissingID)
	assert.Empty(t, src.fetched)

	vars, err := e.VariablesDetailed(context.Background())
	require.NoError(t, err)
	require.Len(t, vars.Items, 1)
	assert.Equal(t, "vYear", vars.Items[0].Name)
	require.Len(t, vars.Skipped, 1)
	assert.Equal(t, "vOrphan", vars.Skipped[0].Title)
}

func TestDetailedStopsOnCancel(t *testing.T) {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[{"qInfo":{"qId":"d1"}},{"qInfo":{"qId":"d2"}}]}}`
	src.objects["dimension/d1"] = `{"qDim":{"qFieldDefs":["A"]}}`
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.cancel = cancel

	res, err := NewEnumerator(src, nil).DimensionsDetailed(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, []string{"dimension/d1"}, src.fetched)
}

func TestExpressionShapes(t *testing.T) {
	cases := map[string]string{
		`"plain"`:                                 "plain",
		`{"qStringExpression":{"qExpr":"nested"}}`: "nested",
		`{"qExpr":"flat"}`:                        "flat",
		`null`:                                    "",
	}
	for input, want := range cases {
		var e expression
		require.NoError(t, e.UnmarshalJSON([]byte(input)), input)
		assert.Equal(t, want, string(e), input)
	}
}

func mergeSource() *fakeSource {
	src := newFakeSource()
	src.lists["DimensionList"] = `{"qDimensionList":{"qItems":[
		{"qInfo":{"qId":"d1"},"qMeta":{"title":"Region"}},
		{"qInfo":{"qId":"d2"},"qMeta":{"title":"Product"}}
	]}}`
	src.lists["MeasureList"] = `{"qMeasureList":{"qItems":[{"qInfo":{"qId":"m1"},"qMeta":{"title":"Revenue"}}]}}`
	src.lists["VariableList"] = `{"qVariableList":{"qItems":[{"qInfo":{"qId":"v1"},"qName":"vYear","qDefinition":"2024","qMeta":{"tags":["time"]}}]}}`
	src.objects["dimension/d1"] = `{"qDim":{"qFieldDefs":["Region"],"qFieldLabels":["Region"]}}`
	src.objects["dimension/d2"] = `{"qDim":{"qGrouping":"C","qFieldDefs":["Product","Category"]}}`
	src.objects["measure/m1"] = `{"qMeasure":{"qDef":"Sum(Sales)","qLabel":"Revenue"}}`
	return src
}

func TestMasterItemsMergeOrder(t *testing.T) {
	report, err := NewEnumerator(mergeSource(), nil).MasterItems(context.Background(), Selection{IncludeVariables: true})
	require.NoError(t, err)
	assert.Equal(t, AllColumns, report.Columns)
	assert.Empty(t, report.Failures)

	require.Len(t, report.Items, 4)
	var ids, kinds []string
	for _, item := range report.Items {
		ids = append(ids, item.ID)
		kinds = append(kinds, item.ItemType)
	}
	assert.Equal(t, []string{"d1", "d2", "m1", "v1"}, ids)
	assert.Equal(t, []string{"Dimension", "Dimension", "Measure", "Variable"}, kinds)

	require.Len(t, report.Dimensions.Items, 2)
	assert.Equal(t, "multi", report.Dimensions.Items[1].Kind())
	require.Len(t, report.Measures.Items, 1)
	assert.Equal(t, "Sum(Sales)", report.Measures.Items[0].Expression)
	require.Len(t, report.Variables.Items, 1)
	assert.Equal(t, "vYear", report.Variables.Items[0].Name)

	assert.Equal(t, pkg.MasterItem{
		ID: "d2", Title: "Product", Expression: "Product, Category", Type: "multi", ItemType: "Dimension",
	}, report.Items[1])
	assert.Equal(t, pkg.MasterItem{
		ID: "m1", Title: "Revenue", Label: "Revenue", Expression: "Sum(Sales)", ItemType: "Measure",
	}, report.Items[2])
	assert.Equal(t, pkg.MasterItem{
		ID: "v1", Title: "vYear", Expression: "2024", Tags: "time", ItemType: "Variable",
	}, report.Items[3])
}

func TestMasterItemRowsLeaveEmptyListsBlank(t *testing.T) {
	item := FromDimension(pkg.Dimension{ID: "d9", Title: "Empty"})
	assert.Equal(t, "", item.Tags)
	assert.Equal(t, "", item.Expression)
	assert.Equal(t, "", FromMeasure(pkg.Measure{ID: "m9"}).Tags)
	assert.Equal(t, "a, b", FromVariable(pkg.Variable{Tags: []string{"a", "b"}}).Tags)
}

func TestMasterItemsWithoutVariables(t *testing.T) {
	report, err := NewEnumerator(mergeSource(), nil).MasterItems(context.Background(), Selection{
		Columns: []Column{ColumnTitle, ColumnItemType},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Region", "Dimension"},
		{"Product", "Dimension"},
		{"Revenue", "Measure"},
	}, report.Rows())
}

func TestMasterItemsRecordsListFailure(t *testing.T) {
	src := mergeSource()
	src.listErrs["DimensionList"] = engine.ErrMaterialize

	report, err := NewEnumerator(src, nil).MasterItems(context.Background(), Selection{IncludeVariables: true})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], engine.ErrMaterialize)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "m1", report.Items[0].ID)
	assert.Equal(t, "v1", report.Items[1].ID)
}

func TestParseColumns(t *testing.T) {
	cols, err := ParseColumns(nil)
	require.NoError(t, err)
	assert.Equal(t, AllColumns, cols)

	cols, err = ParseColumns([]string{" title ", "itemtype", "Expression"})
	require.NoError(t, err)
	assert.Equal(t, []Column{ColumnTitle, ColumnItemType, ColumnExpression}, cols)
	assert.Equal(t, []string{"Title", "ItemType", "Expression"}, Header(cols))

	_, err = ParseColumns([]string{"Title", "Value"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.Contains(t, err.Error(), `"Value"`)
}
