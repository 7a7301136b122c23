package masteritems

import (
	"bytes"
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Layout shapes returned by the engine. Every field is optional on the wire;
// absent fields decode to their zero value and the builders below apply the
// documented defaults.

const noTitle = "No title"

type nxInfo struct {
	ID   string `json:"qId"`
	Type string `json:"qType"`
}

type nxMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type listData struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type listItem struct {
	Info nxInfo   `json:"qInfo"`
	Meta nxMeta   `json:"qMeta"`
	Data listData `json:"qData"`
}

type itemList struct {
	Items []listItem `json:"qItems"`
}

type dimensionListLayout struct {
	DimensionList itemList `json:"qDimensionList"`
}

type measureListLayout struct {
	MeasureList itemList `json:"qMeasureList"`
}

type variableItem struct {
	Info            nxInfo   `json:"qInfo"`
	Name            string   `json:"qName"`
	Definition      string   `json:"qDefinition"`
	Meta            nxMeta   `json:"qMeta"`
	Data            listData `json:"qData"`
	IsScriptCreated bool     `json:"qIsScriptCreated"`
}

type variableListLayout struct {
	VariableList struct {
		Items []variableItem `json:"qItems"`
	} `json:"qVariableList"`
}

type dimensionLayout struct {
	Info nxInfo `json:"qInfo"`
	Meta nxMeta `json:"qMeta"`
	Dim  struct {
		Grouping        string     `json:"qGrouping"`
		FieldDefs       []string   `json:"qFieldDefs"`
		FieldLabels     []string   `json:"qFieldLabels"`
		LabelExpression string     `json:"qLabelExpression"`
		Description     expression `json:"descriptionExpression"`
	} `json:"qDim"`
}

type measureLayout struct {
	Info    nxInfo `json:"qInfo"`
	Meta    nxMeta `json:"qMeta"`
	Measure struct {
		Label           string     `json:"qLabel"`
		Def             string     `json:"qDef"`
		LabelExpression string     `json:"qLabelExpression"`
		Description     expression `json:"descriptionExpression"`
	} `json:"qMeasure"`
}

// expression accepts the shapes the engine uses for expression-valued
// properties: a plain string, {"qStringExpression":{"qExpr":...}} or
// {"qExpr":...}.
type expression string

func (e *expression) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expression(s)
		return nil
	}
	var wrapped struct {
		Expr             string `json:"qExpr"`
		StringExpression *struct {
			Expr string `json:"qExpr"`
		} `json:"qStringExpression"`
	}
	if err := sonic.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.StringExpression != nil {
		*e = expression(wrapped.StringExpression.Expr)
		return nil
	}
	*e = expression(wrapped.Expr)
	return nil
}

func decodeLayout(layout json.RawMessage, into any) error {
	if len(layout) == 0 {
		return nil
	}
	return sonic.Unmarshal(layout, into)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTags(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return []string{}
}
