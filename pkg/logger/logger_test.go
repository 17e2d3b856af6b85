package logger

import (
	"reflect"
	"testing"
)

type entry struct {
	level   string
	message string
	keyvals []any
}

type recorder struct {
	entries []entry
}

func (r *recorder) add(level, msg string, kv []any) {
	r.entries = append(r.entries, entry{level, msg, kv})
}

func (r *recorder) Log(m string, kv ...any)   { r.add("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.add("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.add("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.add("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("fatal", m, kv) }

func TestDispatchToAllInstances(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	defer Init()

	Log("plain", "k", 1)
	Info("[Graph] built", "nodes", 3)
	Warn("careful")
	Error("broken", "err", "boom")
	Debug("details", "seq", uint64(2))

	want := []entry{
		{"log", "plain", []any{"k", 1}},
		{"info", "[Graph] built", []any{"nodes", 3}},
		{"warn", "careful", nil},
		{"error", "broken", []any{"err", "boom"}},
		{"debug", "details", []any{"seq", uint64(2)}},
	}
	for _, r := range []*recorder{a, b} {
		if !reflect.DeepEqual(r.entries, want) {
			t.Fatalf("entries = %#v, want %#v", r.entries, want)
		}
	}
}

func TestUninitializedLoggerIsSilent(t *testing.T) {
	mu.Lock()
	singleton = nil
	mu.Unlock()

	// must not panic
	Info("nobody listens")
	Fatal("not even for fatal")
}
