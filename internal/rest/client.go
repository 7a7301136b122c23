package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"appdocu/pkg"

	"github.com/bytedance/sonic"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"
)

// DefaultLimit is the page size used by list calls when none is given.
const DefaultLimit = 100

// ErrNotFound is returned when a lookup succeeds but yields no record.
var ErrNotFound = errors.New("not found")

// StatusError reports a non-200 answer from the REST API.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// Config configures a Client.
type Config struct {
	Tenant  string
	APIKey  string
	Timeout time.Duration
	// BaseURL replaces https://{Tenant} when set.
	BaseURL string
	Logger  *zerolog.Logger
}

// Client talks to the tenant REST API with a bearer token. It performs one
// request per call with no retry and no pagination.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a REST client for the tenant.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Tenant
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// SpaceName returns the name of a space.
func (c *Client) SpaceName(ctx context.Context, spaceID string) (string, error) {
	var space struct {
		Name string `json:"name"`
	}
	if err := c.get(ctx, "spaces/"+url.PathEscape(spaceID), nil, &space); err != nil {
		return "", fmt.Errorf("failed to fetch space %s: %w", spaceID, err)
	}
	return orDefault(space.Name, NoName), nil
}

// AppName returns the name of an app as listed in the items catalogue.
func (c *Client) AppName(ctx context.Context, appID string) (string, error) {
	item, err := c.appItem(ctx, appID)
	if err != nil {
		return "", err
	}
	return orDefault(item.Name, NoName), nil
}

// Apps lists all apps, or the apps of one space when spaceID is set.
func (c *Client) Apps(ctx context.Context, spaceID string) ([]pkg.AppRef, error) {
	if spaceID != "" {
		var page listPage[itemRecord]
		q := itemsQuery{ResourceType: "app", SpaceID: spaceID}
		if err := c.get(ctx, "items", q, &page); err != nil {
			return nil, fmt.Errorf("failed to list apps of space %s: %w", spaceID, err)
		}
		apps := make([]pkg.AppRef, 0, len(page.Data))
		for _, item := range page.Data {
			apps = append(apps, pkg.AppRef{
				Name: orDefault(item.Name, NoName),
				ID:   orDefault(item.ResourceID, orDefault(item.ID, Undefined)),
			})
		}
		return apps, nil
	}

	var page listPage[appRecord]
	if err := c.get(ctx, "apps", nil, &page); err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	apps := make([]pkg.AppRef, 0, len(page.Data))
	for _, app := range page.Data {
		apps = append(apps, pkg.AppRef{
			Name: orDefault(app.Attributes.Name, NoName),
			ID:   orDefault(app.Attributes.ID, Undefined),
		})
	}
	return apps, nil
}

// Users lists tenant users. A limit of zero uses DefaultLimit.
func (c *Client) Users(ctx context.Context, limit int) ([]pkg.User, error) {
	var page listPage[pkg.User]
	if err := c.get(ctx, "users", limitQuery{Limit: orLimit(limit)}, &page); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return nonNil(page.Data), nil
}

// User fetches one user.
func (c *Client) User(ctx context.Context, userID string) (pkg.User, error) {
	var user pkg.User
	if err := c.get(ctx, "users/"+url.PathEscape(userID), nil, &user); err != nil {
		return pkg.User{}, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return user, nil
}

// Glossaries lists business glossaries. A limit of zero uses DefaultLimit.
func (c *Client) Glossaries(ctx context.Context, limit int) ([]pkg.Glossary, error) {
	var page listPage[pkg.Glossary]
	if err := c.get(ctx, "glossaries", limitQuery{Limit: orLimit(limit)}, &page); err != nil {
		return nil, fmt.Errorf("failed to list glossaries: %w", err)
	}
	return nonNil(page.Data), nil
}

// Glossary fetches one glossary.
func (c *Client) Glossary(ctx context.Context, glossaryID string) (pkg.Glossary, error) {
	var glossary pkg.Glossary
	if err := c.get(ctx, "glossaries/"+url.PathEscape(glossaryID), nil, &glossary); err != nil {
		return pkg.Glossary{}, fmt.Errorf("failed to fetch glossary %s: %w", glossaryID, err)
	}
	return glossary, nil
}

// Term fetches one glossary term.
func (c *Client) Term(ctx context.Context, termID string) (pkg.Term, error) {
	var term pkg.Term
	if err := c.get(ctx, "terms/"+url.PathEscape(termID), nil, &term); err != nil {
		return pkg.Term{}, fmt.Errorf("failed to fetch term %s: %w", termID, err)
	}
	return term, nil
}

// AppInfo combines the app's catalogue entry, its owner's name and its
// reload schedule. Only the catalogue lookup is fatal; owner and reload
// failures are reported inside the returned fields.
func (c *Client) AppInfo(ctx context.Context, appID string) (pkg.AppInfo, error) {
	item, err := c.appItem(ctx, appID)
	if err != nil {
		return pkg.AppInfo{}, err
	}
	info := pkg.AppInfo{
		Name:        orDefault(item.Name, NoName),
		Description: orDefault(item.Description, Dash),
		Created:     dateOr(item.CreatedAt, "No created date"),
		Updated:     dateOr(item.UpdatedAt, "No updated date"),
	}

	switch {
	case item.OwnerID == "":
		info.Owner = "No owner ID"
	default:
		owner, err := c.User(ctx, item.OwnerID)
		if err != nil {
			c.logger.Warn().Err(err).Str("owner_id", item.OwnerID).Msg("failed to resolve app owner")
		}
		info.Owner = orDefault(owner.Name, "No owner name")
	}

	var tasks listPage[reloadTask]
	if err := c.get(ctx, "reload-tasks", reloadTasksQuery{AppID: appID}, &tasks); err != nil {
		c.logger.Warn().Err(err).Str("app_id", appID).Msg("failed to fetch reload tasks")
		info.LastExecutionTime = "Error fetching reload time"
		info.NextExecutionTime = "Error fetching reload time"
		return info, nil
	}
	if len(tasks.Data) == 0 {
		info.LastExecutionTime = "No task data"
		info.NextExecutionTime = "No task data"
		return info, nil
	}
	info.LastExecutionTime = FormatDate(tasks.Data[0].LastExecutionTime)
	info.NextExecutionTime = FormatDate(tasks.Data[0].NextExecutionTime)
	return info, nil
}

// ====================== Private Methods ======================

func (c *Client) appItem(ctx context.Context, appID string) (itemRecord, error) {
	var page listPage[itemRecord]
	if err := c.get(ctx, "items", itemsQuery{ResourceType: "app", ResourceID: appID}, &page); err != nil {
		return itemRecord{}, fmt.Errorf("failed to fetch app %s: %w", appID, err)
	}
	if len(page.Data) == 0 {
		return itemRecord{}, fmt.Errorf("app %s: %w", appID, ErrNotFound)
	}
	return page.Data[0], nil
}

func (c *Client) get(ctx context.Context, path string, params any, into any) error {
	endpoint := c.baseURL + "/api/v1/" + path
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("failed to encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug().Str("url", endpoint).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("rest request")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Status: resp.StatusCode, URL: endpoint}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := sonic.Unmarshal(body, into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func dateOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return FormatDate(value)
}

func orLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
