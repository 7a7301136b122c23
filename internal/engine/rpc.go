package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Send writes one request and returns its sequence id. The id is returned even
// when the write fails; whether it stays consumed depends on
// Config.ConsumeIDOnSendFailure.
func (s *Session) Send(ctx context.Context, method string, handle int, params any) (uint64, error) {
	s.mu.Lock()
	if s.pending != 0 && !s.closed {
		outstanding := s.pending
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s while request %d is unanswered", ErrBusy, method, outstanding)
	}
	s.seq++
	id := s.seq
	closed := s.closed
	if !closed {
		s.pending = id
	}
	s.mu.Unlock()

	err := ctx.Err()
	if closed {
		err = ErrClosed
	}
	if err == nil {
		err = s.write(ctx, id, method, handle, params)
	}
	if err != nil {
		s.mu.Lock()
		if s.pending == id {
			s.pending = 0
		}
		if !s.config.ConsumeIDOnSendFailure && s.seq == id {
			s.seq--
		}
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("method", method).Uint64("id", id).Msg("error sending request")
		return id, fmt.Errorf("%w: %s (id %d): %w", ErrSend, method, id, err)
	}

	s.logger.Debug().Str("method", method).Uint64("id", id).Int("handle", handle).Msg("request sent")
	return id, nil
}

func (s *Session) write(ctx context.Context, id uint64, method string, handle int, params any) error {
	data, err := encodeRequest(id, method, handle, params)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive blocks until the reply to the outstanding request arrives. A reply
// carrying an error payload is returned as is; Receive only fails for channel
// problems, timeouts, cancellation or a reply that belongs to nobody.
func (s *Session) Receive(ctx context.Context) (*Reply, error) {
	var timeout <-chan time.Time
	if s.config.ReplyTimeout > 0 {
		timer := time.NewTimer(s.config.ReplyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if s.isClosed() {
			return nil, ErrClosed
		}
		select {
		case f := <-s.inbound:
			reply, err := s.accept(f.data)
			if err != nil {
				return nil, err
			}
			if reply != nil {
				return reply, nil
			}
		case <-s.dead:
			if s.isClosed() {
				return nil, ErrClosed
			}
			s.abandon()
			return nil, fmt.Errorf("%w: %v", ErrReceive, s.readErr)
		case <-s.done:
			return nil, ErrClosed
		case <-timeout:
			s.abandon()
			return nil, fmt.Errorf("%w after %s", ErrTimeout, s.config.ReplyTimeout)
		case <-ctx.Done():
			s.abandon()
			return nil, ctx.Err()
		}
	}
}

// Call sends one request and waits for its reply.
func (s *Session) Call(ctx context.Context, method string, handle int, params any) (*Reply, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	if _, err := s.Send(ctx, method, handle, params); err != nil {
		return nil, err
	}
	reply, err := s.Receive(ctx)
	if err != nil {
		s.abandon()
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return reply, nil
}

// accept decodes one frame. It returns nil, nil for frames that are not the
// awaited reply but may be ignored.
func (s *Session) accept(data []byte) (*Reply, error) {
	msg, err := decodeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding message: %v", ErrReceive, err)
	}
	if !msg.isReply() {
		s.logger.Debug().Str("method", msg.Method).Msg("skipping engine notification")
		return nil, nil
	}

	id := *msg.ID
	s.mu.Lock()
	if _, ok := s.abandoned[id]; ok {
		delete(s.abandoned, id)
		s.mu.Unlock()
		s.logger.Debug().Uint64("id", id).Msg("discarding late reply to abandoned request")
		return nil, nil
	}
	if s.pending == 0 || id != s.pending {
		outstanding := s.pending
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: got id %d, waiting for %d", ErrReplyMismatch, id, outstanding)
	}
	s.pending = 0
	s.mu.Unlock()

	reply := &Reply{ID: id, Result: msg.Result, Error: msg.Error}
	if reply.Error != nil {
		s.logger.Warn().Uint64("id", id).Int("code", reply.Error.Code).Str("error", reply.Error.Message).
			Msg("error received from engine")
	}
	return reply, nil
}

// abandon forgets the outstanding request; a reply to it arriving later is dropped.
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != 0 {
		s.abandoned[s.pending] = struct{}{}
		s.pending = 0
	}
}
