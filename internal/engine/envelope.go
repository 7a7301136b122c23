package engine

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// GlobalHandle targets the engine itself rather than an object inside a document.
const GlobalHandle = -1

// Request is the JSON-RPC envelope written for every call.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Handle  int    `json:"handle"`
	Params  any    `json:"params"`
}

// Reply is a decoded engine reply. When Error is set, Result is nil.
type Reply struct {
	ID     uint64
	Result json.RawMessage
	Error  *RPCError
}

// Err returns the server-reported error, if any.
func (r *Reply) Err() error {
	if r == nil || r.Error == nil {
		return nil
	}
	return r.Error
}

// inboundMessage covers both replies and notifications pushed by the engine.
type inboundMessage struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// isReply reports whether the message answers a request. Engine notifications
// (OnConnected and friends) carry a method and no id.
func (m *inboundMessage) isReply() bool {
	return m.ID != nil && (m.Result != nil || m.Error != nil)
}

func encodeRequest(id uint64, method string, handle int, params any) ([]byte, error) {
	if params == nil {
		params = struct{}{}
	}
	return sonic.Marshal(&Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Handle:  handle,
		Params:  params,
	})
}

func decodeMessage(data []byte) (*inboundMessage, error) {
	var msg inboundMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Error != nil {
		msg.Result = nil
	}
	return &msg, nil
}
