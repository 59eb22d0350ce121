package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	t.Setenv("DSHBD_LOG_LEVEL", "")
	if got := ParseLevel("debug"); got != logrus.DebugLevel {
		t.Fatalf("expected debug; got %v", got)
	}
	if got := ParseLevel("nonsense"); got != logrus.InfoLevel {
		t.Fatalf("expected info fallback; got %v", got)
	}
	t.Setenv("DSHBD_LOG_LEVEL", "warn")
	if got := ParseLevel("debug"); got != logrus.WarnLevel {
		t.Fatalf("expected env override to warn; got %v", got)
	}
}

func TestFor_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger.Out
	Logger.SetOutput(&buf)
	t.Cleanup(func() { Logger.SetOutput(prev) })

	For("bus").Warn("no subscribers")
	if out := buf.String(); !strings.Contains(out, "component=bus") || !strings.Contains(out, "no subscribers") {
		t.Fatalf("expected component field in output; got %q", out)
	}
}
