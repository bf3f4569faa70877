package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/tagwire/wire"
)

func traceLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("bad log line %q: %v", raw, err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestTracer(t *testing.T) {
	var buf bytes.Buffer
	data := encode(t, wire.StructOf(wire.M(1, wire.VarIntValue(5))))

	p := wire.NewParser(data, wire.DefaultConfig())
	tracer := NewTracer(zerolog.New(&buf).Level(zerolog.DebugLevel), p, nil)
	td.CmpNoError(t, p.Parse(tracer))

	lines := traceLines(t, &buf)
	events := make([]interface{}, len(lines))
	for i, l := range lines {
		events[i] = l["event"]
	}
	td.Cmp(t, events, []interface{}{
		"BeginStruct", "BeginMember", "BeginPrimitive", "EndPrimitive",
		"EndMember", "EndStruct", "EndOfStream",
	})
	td.Cmp(t, lines[1], td.SuperMapOf(map[string]interface{}{
		"level":  "debug",
		"type":   "VarInt",
		"tag_id": float64(1),
		"path":   "1",
		"offset": float64(3),
	}, nil))
	td.Cmp(t, lines[2], td.SuperMapOf(map[string]interface{}{"value": "5"}, nil))
}

func TestTracer_ForwardsAndLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	data := encode(t, wire.StructOf(wire.M(1, wire.StringValue("x"))))

	boom := errors.New("boom")
	next := &failingHandler{err: boom}
	p := wire.NewParser(data, wire.DefaultConfig())
	err := p.Parse(NewTracer(zerolog.New(&buf), p, next))
	td.CmpErrorIs(t, err, wire.ErrHook)
	td.CmpErrorIs(t, err, boom)
	td.CmpTrue(t, next.called)

	lines := traceLines(t, &buf)
	td.Cmp(t, lines[len(lines)-1], td.SuperMapOf(map[string]interface{}{
		"message": "parse failed",
	}, nil))
}

func TestTracer_Disabled(t *testing.T) {
	var buf bytes.Buffer
	data := encode(t, wire.StructOf())
	td.CmpNoError(t, wire.Parse(data, NewTracer(zerolog.New(&buf).Level(zerolog.InfoLevel), nil, nil)))
	td.CmpEmpty(t, buf.String())
}

type failingHandler struct {
	wire.NopHandler
	err    error
	called bool
}

func (f *failingHandler) OnBeginPrimitive(wire.WireDataType, interface{}) error {
	f.called = true
	return f.err
}
