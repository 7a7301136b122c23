package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Config controls how a Session is opened and how it waits for replies.
type Config struct {
	// ReplyTimeout bounds every Receive. Zero waits forever.
	ReplyTimeout time.Duration
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
	// TLSConfig overrides the default TLS client configuration.
	TLSConfig *tls.Config
	// ConsumeIDOnSendFailure keeps a sequence id spent when its request could
	// not be written. When false the counter is rolled back.
	ConsumeIDOnSendFailure bool
	// Logger receives protocol diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ReplyTimeout:           30 * time.Second,
		HandshakeTimeout:       15 * time.Second,
		ConsumeIDOnSendFailure: true,
	}
}

// AppEndpoint builds the engine websocket address of an app on a tenant.
func AppEndpoint(tenant, appID string) string {
	return (&url.URL{Scheme: "wss", Host: tenant, Path: "/app/" + appID}).String()
}

type frame struct {
	data []byte
}

// Session owns one websocket to the engine. All calls on a Session are
// serialized: there is never more than one request in flight.
type Session struct {
	endpoint string
	conn     *websocket.Conn
	config   Config
	logger   zerolog.Logger

	// callMu serializes Call so Send and Receive pair up.
	callMu sync.Mutex

	// mu guards the fields below.
	mu        sync.Mutex
	seq       uint64
	pending   uint64
	abandoned map[uint64]struct{}
	document  *Document
	closed    bool
	// opening holds the id of a document whose OpenDoc call is in flight.
	// Guarded by mu.
	opening string

	inbound chan frame
	// dead is closed when the reader stops; readErr is set before.
	dead    chan struct{}
	readErr error
	// done is closed by Close.
	done      chan struct{}
	closeOnce sync.Once
}

// Open dials the engine endpoint with the credential as bearer token. On
// failure no Session is returned.
func Open(ctx context.Context, endpoint, credential string, config Config) (*Session, error) {
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	logger = logger.With().Str("endpoint", endpoint).Logger()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
		TLSClientConfig:  config.TLSConfig,
	}
	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	logger.Debug().Msg("connecting to engine")
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s: handshake status %d: %v", ErrConnection, endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, endpoint, err)
	}

	s := &Session{
		endpoint:  endpoint,
		conn:      conn,
		config:    config,
		logger:    logger,
		abandoned: make(map[uint64]struct{}),
		inbound:   make(chan frame),
		dead:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.readLoop()

	logger.Info().Msg("engine connection established")
	return s, nil
}

// Endpoint returns the address the session is connected to.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.document != nil {
			s.document.state = DocumentClosed
		}
		s.mu.Unlock()

		close(s.done)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			s.logger.Debug().Err(err).Msg("close frame not sent")
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("closing engine connection")
		}
		s.logger.Info().Msg("engine connection closed")
	})
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// readLoop hands every inbound frame to Receive until the socket fails.
func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = err
			close(s.dead)
			return
		}
		select {
		case s.inbound <- frame{data: data}:
		case <-s.done:
			return
		}
	}
}
