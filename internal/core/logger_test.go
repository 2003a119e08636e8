package core

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelOff,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLoggerComponentOverride(t *testing.T) {
	l := NewLogger(LogConfig{
		Level:      "warn",
		Components: map[string]string{"Watcher": "debug", "runner": "off"},
	})

	if l.Enabled("Helper", LevelInfo) {
		t.Error("Helper info should be filtered at global warn")
	}
	if !l.Enabled("Helper", LevelError) {
		t.Error("Helper error should pass at global warn")
	}
	if !l.Enabled("watcher", LevelDebug) {
		t.Error("component lookup should be case-insensitive")
	}
	if l.Enabled("Runner", LevelError) {
		t.Error("component set to off should drop everything")
	}

	l.Configure(LogConfig{Level: "debug"})
	if !l.Enabled("Runner", LevelDebug) {
		t.Error("Configure should replace the component table")
	}
}
