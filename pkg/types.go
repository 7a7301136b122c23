package pkg

import (
	"strings"
)

// Item types used in merged master item reports.
const (
	ItemTypeDimension = "Dimension"
	ItemTypeMeasure   = "Measure"
	ItemTypeVariable  = "Variable"
)

// Field lists used when printing the per-kind sections of a report.
var (
	DimensionFields = []string{"ID", "Title", "Description", "Tags", "Field Definitions", "Field Labels", "Type"}
	MeasureFields   = []string{"ID", "Title", "Tags", "Expression", "Label", "Description"}
	VariableFields  = []string{"ID", "Title", "Value", "Tags"}
)

// Dimension is a master dimension with its details resolved.
type Dimension struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	FieldDefs   []string `json:"field_defs"`
	FieldLabels string   `json:"field_labels"`
	Grouping    string   `json:"grouping"`
}

// Kind reports "single" for plain dimensions and "multi" for drill-down and
// cyclic groups.
func (d Dimension) Kind() string {
	if d.Grouping == "" || d.Grouping == "N" {
		return "single"
	}
	return "multi"
}

// Row returns the values matching DimensionFields.
func (d Dimension) Row() []string {
	return []string{
		d.ID,
		d.Title,
		d.Description,
		JoinList("Tags", d.Tags),
		JoinList("Field Definitions", d.FieldDefs),
		d.FieldLabels,
		d.Kind(),
	}
}

// Measure is a master measure with its details resolved.
type Measure struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Expression  string   `json:"expression"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}

// Row returns the values matching MeasureFields.
func (m Measure) Row() []string {
	return []string{m.ID, m.Title, JoinList("Tags", m.Tags), m.Expression, m.Label, m.Description}
}

// Variable is an app variable.
type Variable struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Definition string   `json:"definition"`
	Tags       []string `json:"tags"`
}

// Row returns the values matching VariableFields.
func (v Variable) Row() []string {
	return []string{v.ID, v.Name, v.Definition, JoinList("Tags", v.Tags)}
}

// MasterItem is one normalized row of the merged master item report.
type MasterItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Expression  string `json:"expression"`
	Tags        string `json:"tags"`
	Type        string `json:"type"`
	ItemType    string `json:"item_type"`
}

// AppRef identifies an app in a listing.
type AppRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// AppInfo is the composite app description shown at the top of a report.
type AppInfo struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Created           string `json:"created"`
	Updated           string `json:"updated"`
	Owner             string `json:"owner"`
	LastExecutionTime string `json:"last_execution_time"`
	NextExecutionTime string `json:"next_execution_time"`
}

// KV is one labelled value of a key/value block.
type KV struct {
	Key   string
	Value string
}

// Fields returns the app info in display order.
func (a AppInfo) Fields() []KV {
	return []KV{
		{"name", a.Name},
		{"description", a.Description},
		{"created", a.Created},
		{"updated", a.Updated},
		{"owner", a.Owner},
		{"lastExecutionTime", a.LastExecutionTime},
		{"nextExecutionTime", a.NextExecutionTime},
	}
}

// User is a tenant user as returned by the users API.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Status   string   `json:"status"`
	Subject  string   `json:"subject"`
	Roles    []string `json:"roles"`
	Created  string   `json:"created"`
	TenantID string   `json:"tenantId"`
}

// Glossary is a business glossary.
type Glossary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	SpaceID     string   `json:"spaceId"`
	OwnerID     string   `json:"ownerId"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Term is a glossary term.
type Term struct {
	ID           string   `json:"id"`
	GlossaryID   string   `json:"glossaryId"`
	Name         string   `json:"name"`
	Abbreviation string   `json:"abbreviation"`
	Description  string   `json:"description"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags"`
}

// Fields returns the user as a key/value record.
func (u User) Fields() []KV {
	return []KV{
		{"name", u.Name},
		{"email", u.Email},
		{"id", u.ID},
		{"status", u.Status},
		{"roles", JoinList("Roles", u.Roles)},
	}
}

// Fields returns the glossary as a key/value record.
func (g Glossary) Fields() []KV {
	return []KV{
		{"name", g.Name},
		{"id", g.ID},
		{"description", g.Description},
		{"tags", JoinList("Tags", g.Tags)},
		{"updatedAt", g.UpdatedAt},
	}
}

// Fields returns the term as a key/value record.
func (t Term) Fields() []KV {
	return []KV{
		{"name", t.Name},
		{"abbreviation", t.Abbreviation},
		{"description", t.Description},
		{"status", t.Status},
		{"tags", JoinList("Tags", t.Tags)},
	}
}

// JoinList joins list values for display. An empty list renders as
// "No <field>".
func JoinList(field string, values []string) string {
	if len(values) == 0 {
		return "No " + strings.ToLower(field)
	}
	return strings.Join(values, ", ")
}
