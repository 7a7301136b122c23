package masteritems

// Session object definitions for the three master item lists. The qData
// projections are what the list layouts expose per item.

// DimensionListDefinition lists master dimensions.
func DimensionListDefinition() map[string]any {
	return map[string]any{
		"qInfo": map[string]any{"qType": "DimensionList"},
		"qDimensionListDef": map[string]any{
			"qType": "dimension",
			"qData": map[string]any{
				"title":      "/qMetaDef/title",
				"tags":       "/qMetaDef/tags",
				"definition": "/qDim/qFieldDefs",
			},
		},
	}
}

// MeasureListDefinition lists master measures.
func MeasureListDefinition() map[string]any {
	return map[string]any{
		"qInfo": map[string]any{"qType": "MeasureList"},
		"qMeasureListDef": map[string]any{
			"qType": "measure",
			"qData": map[string]any{
				"title":      "/qMetaDef/title",
				"tags":       "/qMetaDef/tags",
				"definition": "/qMeasure/qDef",
			},
		},
	}
}

// VariableListDefinition lists app variables.
func VariableListDefinition() map[string]any {
	return map[string]any{
		"qInfo": map[string]any{"qType": "VariableList"},
		"qVariableListDef": map[string]any{
			"qType": "variable",
			"qData": map[string]any{
				"tags":       "/tags",
				"title":      "/title",
				"definition": "/definition",
			},
		},
	}
}
