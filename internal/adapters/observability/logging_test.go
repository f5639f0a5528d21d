package observability

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "warn")
	l.Info().Msg("hidden")
	l.Warn().Str("source", "graph").Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" || line["source"] != "graph" || line["level"] != "warn" {
		t.Fatalf("unexpected line: %v", line)
	}

	buf.Reset()
	// unknown level falls back to info; dev writes console lines
	dl := newLogger(&buf, "dev", "bogus")
	dl.Debug().Msg("quiet")
	dl.Info().Msg("console")
	if json.Valid(buf.Bytes()) || !bytes.Contains(buf.Bytes(), []byte("console")) {
		t.Fatalf("expected console output, got %q", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte("quiet")) {
		t.Fatalf("debug line written at info level: %q", buf.String())
	}
}
