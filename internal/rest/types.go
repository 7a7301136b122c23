package rest

import "time"

// Placeholders used when the API omits a value.
const (
	NoName    = "No name found"
	Undefined = "Undefined"
	Dash      = "–"
)

// DisplayDateLayout is how timestamps are shown in reports.
const DisplayDateLayout = "January 02, 2006, 3:04 PM"

// FormatDate renders an API timestamp for display. Values that are not
// RFC 3339 are returned unchanged and an empty value becomes Dash.
func FormatDate(value string) string {
	if value == "" {
		return Dash
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.UTC().Format(DisplayDateLayout)
}

type listPage[T any] struct {
	Data []T `json:"data"`
}

type itemRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ResourceID  string `json:"resourceId"`
	OwnerID     string `json:"ownerId"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type appRecord struct {
	Attributes struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"attributes"`
}

type reloadTask struct {
	LastExecutionTime string `json:"lastExecutionTime"`
	NextExecutionTime string `json:"nextExecutionTime"`
}

type itemsQuery struct {
	ResourceType string `url:"resourceType"`
	SpaceID      string `url:"spaceId,omitempty"`
	ResourceID   string `url:"resourceId,omitempty"`
}

type limitQuery struct {
	Limit int `url:"limit,omitempty"`
}

type reloadTasksQuery struct {
	AppID string `url:"appId"`
}
