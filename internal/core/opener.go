package core

import (
	"context"

	"appdocu/internal/engine"
	"appdocu/internal/masteritems"
)

// EngineOpener opens app documents on a Qlik Cloud tenant, one session per
// app.
type EngineOpener struct {
	Tenant string
	APIKey string
	Config engine.Config
	// Endpoint overrides engine.AppEndpoint when set.
	Endpoint func(tenant, appID string) string
}

// Open dials the app endpoint and opens its document. The release func
// closes the session.
func (o *EngineOpener) Open(ctx context.Context, appID string) (masteritems.Source, func(), error) {
	endpoint := engine.AppEndpoint
	if o.Endpoint != nil {
		endpoint = o.Endpoint
	}
	session, err := engine.Open(ctx, endpoint(o.Tenant, appID), o.APIKey, o.Config)
	if err != nil {
		return nil, nil, err
	}
	doc, err := session.OpenDocument(ctx, appID)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return doc, session.Close, nil
}
