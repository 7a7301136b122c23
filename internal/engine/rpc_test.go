package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, fe *fakeEngine, cfg Config) *Session {
	t.Helper()
	s, err := Open(context.Background(), fe.url(), "secret-key", cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestAppEndpoint(t *testing.T) {
	assert.Equal(t, "wss://tenant.eu.qlikcloud.com/app/37e72b96", AppEndpoint("tenant.eu.qlikcloud.com", "37e72b96"))
}

func TestOpenSendsBearerToken(t *testing.T) {
	fe := newFakeEngine(t)
	openTest(t, fe, testConfig())
	assert.Equal(t, "Bearer secret-key", fe.authorization())
}

func TestOpenRejectedHandshake(t *testing.T) {
	fe := newFakeEngine(t)
	fe.reject = http.StatusUnauthorized

	s, err := Open(context.Background(), fe.url(), "bad-key", testConfig())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenUnreachable(t *testing.T) {
	s, err := Open(context.Background(), "ws://127.0.0.1:1/app/x", "", testConfig())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestSequenceIDsStrictlyIncreasing(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("EngineVersion", echo(map[string]any{"qVersion": map[string]any{"qComponentVersion": "12.1"}}))
	s := openTest(t, fe, testConfig())

	var ids []uint64
	for i := 0; i < 5; i++ {
		reply, err := s.Call(context.Background(), "EngineVersion", GlobalHandle, nil)
		require.NoError(t, err)
		require.NoError(t, reply.Err())
		ids = append(ids, reply.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)

	for i, req := range fe.received() {
		assert.Equal(t, uint64(i+1), req.ID)
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, GlobalHandle, req.Handle)
		assert.Equal(t, map[string]any{}, req.Params)
	}
}

func TestSendThenReceive(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("GetActiveDoc", echo(map[string]any{"qReturn": map[string]any{"qHandle": 1}}))
	s := openTest(t, fe, testConfig())

	id, err := s.Send(context.Background(), "GetActiveDoc", GlobalHandle, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	reply, err := s.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, reply.ID)
	assert.JSONEq(t, `{"qReturn":{"qHandle":1}}`, string(reply.Result))
}

func TestSendWhileOutstandingIsRefused(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("Slow", func(req Request) []any { return nil })
	s := openTest(t, fe, testConfig())

	_, err := s.Send(context.Background(), "Slow", GlobalHandle, nil)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "Slow", GlobalHandle, nil)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestReceiveBeforeAnySendTimesOut(t *testing.T) {
	fe := newFakeEngine(t)
	cfg := testConfig()
	cfg.ReplyTimeout = 50 * time.Millisecond
	s := openTest(t, fe, cfg)

	reply, err := s.Receive(context.Background())
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReceiveHonoursContext(t *testing.T) {
	fe := newFakeEngine(t)
	cfg := testConfig()
	cfg.ReplyTimeout = 0
	s := openTest(t, fe, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNotificationsAreSkipped(t *testing.T) {
	fe := newFakeEngine(t)
	fe.greeting = []any{map[string]any{
		"jsonrpc": "2.0", "method": "OnConnected", "params": map[string]any{"qSessionState": "SESSION_CREATED"},
	}}
	fe.on("EngineVersion", echo(map[string]any{"ok": true}))
	s := openTest(t, fe, testConfig())

	reply, err := s.Call(context.Background(), "EngineVersion", GlobalHandle, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reply.ID)
}

func TestErrorPayloadIsReturnedNotRaised(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("GetMeasure", func(req Request) []any {
		return []any{map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error":  map[string]any{"code": 2, "parameter": "qId", "message": "not found"},
			"result": map[string]any{"qReturn": map[string]any{"qHandle": 99}},
		}}
	})
	s := openTest(t, fe, testConfig())

	reply, err := s.Call(context.Background(), "GetMeasure", 1, map[string]any{"qId": "mId1"})
	require.NoError(t, err)
	require.NotNil(t, reply.Error)
	assert.Nil(t, reply.Result)
	assert.Equal(t, "not found", reply.Error.Message)

	var rpcErr *RPCError
	require.True(t, errors.As(reply.Err(), &rpcErr))
	assert.Equal(t, 2, rpcErr.Code)
	assert.Equal(t, "engine error 2: not found (qId)", rpcErr.Error())
}

func TestReplyMismatch(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("EngineVersion", func(req Request) []any {
		return []any{resultReply(req.ID+10, map[string]any{})}
	})
	s := openTest(t, fe, testConfig())

	_, err := s.Call(context.Background(), "EngineVersion", GlobalHandle, nil)
	assert.ErrorIs(t, err, ErrReplyMismatch)
}

func TestLateReplyToAbandonedRequestIsDropped(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("Slow", func(req Request) []any {
		time.Sleep(100 * time.Millisecond)
		return []any{resultReply(req.ID, "slow")}
	})
	fe.on("Fast", echo("fast"))
	s := openTest(t, fe, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Call(ctx, "Slow", GlobalHandle, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	reply, err := s.Call(context.Background(), "Fast", GlobalHandle, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reply.ID)
	assert.JSONEq(t, `"fast"`, string(reply.Result))
}

func TestServerDisconnectSurfacesReceiveError(t *testing.T) {
	fe := newFakeEngine(t)
	fe.on("Crash", func(req Request) []any { return []any{closeConn{}} })
	s := openTest(t, fe, testConfig())

	_, err := s.Call(context.Background(), "Crash", GlobalHandle, nil)
	assert.ErrorIs(t, err, ErrReceive)
}

func TestSendAfterCloseConsumesID(t *testing.T) {
	fe := newFakeEngine(t)
	s := openTest(t, fe, testConfig())
	s.Close()

	id, err := s.Send(context.Background(), "EngineVersion", GlobalHandle, nil)
	assert.ErrorIs(t, err, ErrSend)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, uint64(1), id)

	id, err = s.Send(context.Background(), "EngineVersion", GlobalHandle, nil)
	assert.Error(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestSendAfterCloseCanRollBackID(t *testing.T) {
	fe := newFakeEngine(t)
	cfg := testConfig()
	cfg.ConsumeIDOnSendFailure = false
	s := openTest(t, fe, cfg)
	s.Close()

	for i := 0; i < 3; i++ {
		id, err := s.Send(context.Background(), "EngineVersion", GlobalHandle, nil)
		assert.ErrorIs(t, err, ErrSend)
		assert.Equal(t, uint64(1), id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, uint64(0), s.seq)
}

func TestCloseIsIdempotent(t *testing.T) {
	fe := newFakeEngine(t)
	s := openTest(t, fe, testConfig())

	s.Close()
	s.Close()

	_, err := s.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
