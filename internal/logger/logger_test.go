package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	entry := New().WithComponent("oracle")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "oracle" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestEntryChainingKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)

	l.WithComponent("market").WithField("pair", "ETH/USD").WithFields(Fields{"attempt": 2}).Warn("read failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "market" || line["pair"] != "ETH/USD" || line["message"] != "read failed" {
		t.Fatalf("unexpected log fields: %v", line)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	if err := New().Configure("loud", "json", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	if err := New().Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestConfigureLevelAndFile(t *testing.T) {
	l := New()
	path := filepath.Join(t.TempDir(), "dashboard.log")
	if err := l.Configure("debug", "text", path, 7); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", l.GetLevel())
	}
}
