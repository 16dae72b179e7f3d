package toolhost

import (
	"encoding/json"
	"fmt"
	"io"

	cdberrors "github.com/corpusdb/corpusdb/internal/errors"
)

// Serve runs the read-dispatch-write loop until stdin closes.
func (s *Server) Serve() error {
	for {
		msg, err := s.readMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.logger.Error("read message failed", map[string]interface{}{"error": err.Error()})
			continue
		}

		resp := s.handleMessage(msg)
		if resp == nil {
			continue
		}
		if err := s.writeMessage(resp); err != nil {
			s.logger.Error("write message failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (s *Server) handleMessage(msg *Message) *Message {
	if msg.isRequest() {
		return s.handleRequest(msg)
	}
	if msg.isNotification() {
		s.logger.Debug("notification received", map[string]interface{}{"method": msg.Method})
		return nil
	}
	return newErrorMessage(msg.ID, CodeInvalidRequest, "message is neither a request nor a notification")
}

func (s *Server) handleRequest(msg *Message) *Message {
	switch msg.Method {
	case "initialize":
		return newResultMessage(msg.ID, map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]interface{}{"name": "cdb", "version": "0.1.0"},
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		})
	case "tools/list":
		return newResultMessage(msg.ID, map[string]interface{}{"tools": s.defs})
	case "tools/call":
		return s.handleToolCall(msg)
	default:
		return newErrorMessage(msg.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolCall(msg *Message) *Message {
	raw, err := json.Marshal(msg.Params)
	if err != nil {
		return newErrorMessage(msg.ID, CodeInvalidParams, "malformed params")
	}
	var params toolCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return newErrorMessage(msg.ID, CodeInvalidParams, "malformed params")
	}

	handler, ok := s.tools[params.Name]
	if !ok {
		return newErrorMessage(msg.ID, CodeMethodNotFound, "unknown tool: "+params.Name)
	}

	result, err := handler(params.Arguments)
	if err != nil {
		return newErrorMessage(msg.ID, codeForError(err), err.Error())
	}
	return newResultMessage(msg.ID, result)
}

// codeForError maps a structured domain error to a JSON-RPC code; raw
// store errors never leak past their structured form (§4.8).
func codeForError(err error) int {
	if cdberrors.Is(err, cdberrors.Validation) {
		return CodeInvalidParams
	}
	if cdberrors.Is(err, cdberrors.NotFound) {
		return CodeMethodNotFound
	}
	return CodeInternalError
}
