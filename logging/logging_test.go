// File: logging/logging_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirmux.log")
	log, err := Setup(Config{
		Level:   "debug",
		Format:  "json",
		Outputs: []string{path},
	})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello from test")
	_ = log.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "hello from test") {
		t.Fatalf("log file missing entry: %q", b)
	}
	if !strings.Contains(string(b), `"level":"info"`) {
		t.Fatalf("not JSON encoded: %q", b)
	}
}

func TestSetupDefaultsToStderr(t *testing.T) {
	log, err := Setup(Config{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn not enabled")
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug enabled at warn level")
	}
}
