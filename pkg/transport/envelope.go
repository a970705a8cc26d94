package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// Body encodings.
const (
	EncodingJSON   = "json"
	EncodingSnappy = "snappy"
)

// DefaultCompressThreshold is the body size above which snappy is used.
const DefaultCompressThreshold = 1024

// Envelope frames every request and reply on the wire.
type Envelope struct {
	ID        string `json:"id"`
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Encoding  string `json:"encoding"`
	Data      []byte `json:"body,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewEnvelope encodes payload as JSON, compressing it when it exceeds
// threshold bytes. A threshold <= 0 disables compression.
func NewEnvelope(method string, payload any, threshold int) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", method, err)
	}

	env := &Envelope{
		ID:        uuid.NewString(),
		Method:    method,
		Timestamp: time.Now().UnixMilli(),
		Encoding:  EncodingJSON,
		Data:      data,
	}
	if threshold > 0 && len(data) > threshold {
		env.Encoding = EncodingSnappy
		env.Data = snappy.Encode(nil, data)
	}
	return env, nil
}

// Reply builds the response envelope for a request, keeping its id.
func (e *Envelope) Reply(payload any, threshold int) (*Envelope, error) {
	reply, err := NewEnvelope(e.Method, payload, threshold)
	if err != nil {
		return nil, err
	}
	reply.ID = e.ID
	return reply, nil
}

// ErrorReply builds an error response envelope for a request.
func (e *Envelope) ErrorReply(err error) *Envelope {
	return &Envelope{
		ID:        e.ID,
		Method:    e.Method,
		Timestamp: time.Now().UnixMilli(),
		Encoding:  EncodingJSON,
		Error:     err.Error(),
	}
}

// Decode decodes the envelope body into v.
func (e *Envelope) Decode(v any) error {
	data := e.Data
	switch e.Encoding {
	case EncodingJSON, "":
	case EncodingSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return fmt.Errorf("snappy decode: %w", err)
		}
		data = decoded
	default:
		return fmt.Errorf("unsupported encoding %q", e.Encoding)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty %s body", e.Method)
	}
	return json.Unmarshal(data, v)
}

// Marshal returns the frame bytes.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes one frame.
func ParseEnvelope(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	if env.Method == "" && env.Error == "" {
		return nil, fmt.Errorf("envelope %q has no method", env.ID)
	}
	return &env, nil
}
