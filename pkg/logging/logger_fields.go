package logging

import (
	"strings"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component names the daemon or subsystem emitting the line.
func Component(name string) Field {
	return String("component", name)
}

func ReplicaID(id string) Field {
	return String("replica_id", id)
}

func DetectorID(id string) Field {
	return String("lfd_id", id)
}

func ClientID(id string) Field {
	return String("client_id", id)
}

func Method(m string) Field {
	return String("method", m)
}

func Status(s string) Field {
	return String("status", s)
}

func Role(r string) Field {
	return String("role", r)
}

func Addr(a string) Field {
	return String("addr", a)
}

func RequestNumber(n int64) Field {
	return Int64("request_num", n)
}

func Counter(v int64) Field {
	return Int64("counter", v)
}

// Members renders a membership list the way operators read it: "S1 S2 S3".
func Members(ids []string) Field {
	return String("members", strings.Join(ids, " "))
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Operation(op string) Field {
	return String("operation", op)
}
