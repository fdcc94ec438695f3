package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContextCarriesUnit(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	defer slog.SetDefault(old)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := WithUnit(context.Background(), "corpus-a")
	FromContext(ctx).Info("unit started")
	if !strings.Contains(buf.String(), "unit=corpus-a") {
		t.Errorf("log line missing unit attribute: %q", buf.String())
	}

	buf.Reset()
	FromContext(context.Background()).Info("no unit")
	if strings.Contains(buf.String(), "unit=") {
		t.Errorf("log line has unit attribute without one in context: %q", buf.String())
	}
}

func TestWithComponentTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	defer slog.SetDefault(old)
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	WithComponent("matcher").Info("ready")
	if !strings.Contains(buf.String(), "component=matcher") {
		t.Errorf("log line missing component attribute: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
