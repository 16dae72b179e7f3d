package toolhost

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// maxMessageSize is the longest incoming message line the scanner
// accepts. Outgoing responses are written without a size limit.
const maxMessageSize = 4 * 1024 * 1024

func (s *Server) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return nil, io.EOF
	}

	var msg Message
	if err := json.Unmarshal(s.scanner.Bytes(), &msg); err != nil {
		return nil, fmt.Errorf("parse json-rpc message: %w", err)
	}
	return &msg, nil
}

func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal json-rpc message: %w", err)
	}
	_, err = fmt.Fprintf(s.stdout, "%s\n", data)
	return err
}
