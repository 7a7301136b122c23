package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// DocumentState tracks the lifecycle of the document opened on a session.
type DocumentState int

const (
	DocumentUnopened DocumentState = iota
	DocumentOpen
	DocumentClosed
)

func (s DocumentState) String() string {
	switch s {
	case DocumentOpen:
		return "open"
	case DocumentClosed:
		return "closed"
	default:
		return "unopened"
	}
}

// ObjectKind selects which named master item getter is used.
type ObjectKind string

const (
	KindDimension ObjectKind = "dimension"
	KindMeasure   ObjectKind = "measure"
	KindVariable  ObjectKind = "variable"
)

func (k ObjectKind) method() (string, error) {
	switch k {
	case KindDimension:
		return "GetDimension", nil
	case KindMeasure:
		return "GetMeasure", nil
	case KindVariable:
		return "GetVariableById", nil
	}
	return "", fmt.Errorf("unknown object kind %q", string(k))
}

// ObjectInterface is the qReturn value of calls that hand out a handle.
type ObjectInterface struct {
	Type      string `json:"qType"`
	Handle    *int   `json:"qHandle"`
	GenericID string `json:"qGenericId"`
}

type returnResult struct {
	Return *ObjectInterface `json:"qReturn"`
}

type layoutResult struct {
	Layout json.RawMessage `json:"qLayout"`
}

// Document is a document opened on a Session. Its handle is only usable
// through the Session that opened it.
type Document struct {
	session *Session
	id      string
	handle  int
	state   DocumentState
}

// ID returns the document id passed to OpenDocument.
func (d *Document) ID() string { return d.id }

// Handle returns the engine handle of the document.
func (d *Document) Handle() int { return d.handle }

// State returns the document lifecycle state.
func (d *Document) State() DocumentState {
	d.session.mu.Lock()
	defer d.session.mu.Unlock()
	return d.state
}

// Document returns the document opened on the session, or nil.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// OpenDocument opens the document with the given id and returns its handle.
// The session's document slot is reserved before the OpenDoc call, so only
// one of several concurrent callers can succeed.
func (s *Session) OpenDocument(ctx context.Context, documentID string) (*Document, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, documentID, ErrClosed)
	case s.document != nil:
		open := s.document.id
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: document %s already open on this session", ErrOpen, documentID, open)
	case s.opening != "":
		open := s.opening
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: document %s is being opened on this session", ErrOpen, documentID, open)
	}
	s.opening = documentID
	s.mu.Unlock()

	s.logger.Info().Str("document", documentID).Msg("opening document")
	ref, err := s.callForHandle(ctx, "OpenDoc", GlobalHandle, map[string]any{"qDocName": documentID})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opening = ""
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, documentID, err)
	}
	if s.closed {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, documentID, ErrClosed)
	}
	doc := &Document{session: s, id: documentID, handle: *ref.Handle, state: DocumentOpen}
	s.document = doc
	s.logger.Info().Str("document", documentID).Int("handle", doc.handle).Msg("document opened")
	return doc, nil
}

// Materialize creates a transient session object from definition and returns
// its layout. The session object is destroyed before returning, whatever the
// outcome.
func (d *Document) Materialize(ctx context.Context, definition any) (json.RawMessage, error) {
	if err := d.usable(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	s := d.session

	ref, err := s.callForHandle(ctx, "CreateSessionObject", d.handle, map[string]any{"qProp": definition})
	if err != nil {
		return nil, fmt.Errorf("%w: CreateSessionObject: %w", ErrMaterialize, err)
	}
	defer d.destroySessionObject(context.WithoutCancel(ctx), ref.GenericID)

	layout, err := s.layout(ctx, *ref.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: GetLayout: %w", ErrMaterialize, err)
	}
	return layout, nil
}

// GetNamedObject resolves one master item of the given kind by id and returns
// its layout.
func (d *Document) GetNamedObject(ctx context.Context, kind ObjectKind, id string) (json.RawMessage, error) {
	method, err := kind.method()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	if err := d.usable(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrMaterialize, kind, id, err)
	}
	s := d.session

	ref, err := s.callForHandle(ctx, method, d.handle, map[string]any{"qId": id})
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrMaterialize, method, id, err)
	}
	layout, err := s.layout(ctx, *ref.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s layout: %w", ErrMaterialize, kind, id, err)
	}
	return layout, nil
}

func (d *Document) usable() error {
	switch st := d.State(); st {
	case DocumentOpen:
		return nil
	case DocumentClosed:
		return ErrClosed
	default:
		return fmt.Errorf("document %s is %s", d.id, st)
	}
}

func (d *Document) destroySessionObject(ctx context.Context, genericID string) {
	s := d.session
	if genericID == "" {
		s.logger.Warn().Msg("session object has no generic id, cannot destroy it")
		return
	}
	if s.isClosed() {
		return
	}
	reply, err := s.Call(ctx, "DestroySessionObject", d.handle, map[string]any{"qId": genericID})
	if err == nil {
		err = reply.Err()
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("object", genericID).Msg("failed to destroy session object")
	}
}

// ====================== Private Methods ======================

func (s *Session) callForHandle(ctx context.Context, method string, handle int, params any) (*ObjectInterface, error) {
	reply, err := s.Call(ctx, method, handle, params)
	if err != nil {
		return nil, err
	}
	if err := reply.Err(); err != nil {
		return nil, err
	}
	var result returnResult
	if err := sonic.Unmarshal(reply.Result, &result); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	if result.Return == nil || result.Return.Handle == nil {
		return nil, errors.New(method + " returned no handle")
	}
	return result.Return, nil
}

func (s *Session) layout(ctx context.Context, handle int) (json.RawMessage, error) {
	reply, err := s.Call(ctx, "GetLayout", handle, nil)
	if err != nil {
		return nil, err
	}
	if err := reply.Err(); err != nil {
		return nil, err
	}
	var result layoutResult
	if err := sonic.Unmarshal(reply.Result, &result); err != nil {
		return nil, fmt.Errorf("decoding GetLayout result: %w", err)
	}
	if len(result.Layout) == 0 || string(result.Layout) == "null" {
		return nil, errors.New("GetLayout returned no layout")
	}
	return result.Layout, nil
}
