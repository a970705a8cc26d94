package transport

import (
	"strings"
	"testing"
)

type counterBody struct {
	Counter   int64  `json:"counter"`
	ReplicaID string `json:"replica_id"`
	Padding   string `json:"padding,omitempty"`
}

func TestEnvelope_RoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		body         counterBody
		threshold    int
		wantEncoding string
	}{
		{"small body stays json", counterBody{Counter: 3, ReplicaID: "S1"}, 64, EncodingJSON},
		{"large body compressed", counterBody{Counter: 3, ReplicaID: "S1", Padding: strings.Repeat("x", 512)}, 64, EncodingSnappy},
		{"compression disabled", counterBody{Counter: 3, ReplicaID: "S1", Padding: strings.Repeat("x", 512)}, -1, EncodingJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewEnvelope("get", tt.body, tt.threshold)
			if err != nil {
				t.Fatalf("NewEnvelope: %v", err)
			}
			if env.Encoding != tt.wantEncoding {
				t.Errorf("Encoding = %q, want %q", env.Encoding, tt.wantEncoding)
			}
			if env.ID == "" || env.Timestamp == 0 {
				t.Errorf("envelope missing id or timestamp: %+v", env)
			}

			frame, err := env.Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			parsed, err := ParseEnvelope(frame)
			if err != nil {
				t.Fatalf("ParseEnvelope: %v", err)
			}

			var got counterBody
			if err := parsed.Decode(&got); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.body {
				t.Errorf("Decode = %+v, want %+v", got, tt.body)
			}
		})
	}
}

func TestEnvelope_ReplyKeepsID(t *testing.T) {
	req, _ := NewEnvelope("heartbeat", map[string]string{"lfd_id": "LFD1"}, 0)
	reply, err := req.Reply(map[string]bool{"ok": true}, 0)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.ID != req.ID || reply.Method != req.Method {
		t.Errorf("reply = %+v, want id %s method %s", reply, req.ID, req.Method)
	}
}

func TestParseEnvelope_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":  "hello",
		"no method": `{"id":"x","body":""}`,
	}
	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(frame)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEnvelope_DecodeErrors(t *testing.T) {
	var out counterBody

	env := &Envelope{Method: "get", Encoding: "gzip", Data: []byte("{}")}
	if err := env.Decode(&out); err == nil {
		t.Error("expected error for unsupported encoding")
	}

	env = &Envelope{Method: "get", Encoding: EncodingSnappy, Data: []byte("not snappy")}
	if err := env.Decode(&out); err == nil {
		t.Error("expected error for corrupt snappy body")
	}

	env = &Envelope{Method: "get", Encoding: EncodingJSON}
	if err := env.Decode(&out); err == nil {
		t.Error("expected error for empty body")
	}
}
