package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureLogOutput captures the log lines emitted by logFn.
func captureLogOutput(t *testing.T, logFn func(*zap.Logger)) []map[string]any {
	t.Helper()

	resetLoggerForTest()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer func() { _ = r.Close() }()

	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	logger := Logger()
	logFn(logger)
	_ = logger.Sync()

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close writer: %v", closeErr)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read log output: %v", err)
	}

	var payloads []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			t.Fatalf("failed to unmarshal log JSON %q: %v", line, err)
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// resetLoggerForTest clears the singleton state so tests capture fresh output.
func resetLoggerForTest() {
	loggerOnce = sync.Once{}
	baseLogger = nil
	sugarLogger = nil
	loggerErr = nil
}

func TestLoggerStructuredOutput(t *testing.T) {
	payloads := captureLogOutput(t, func(l *zap.Logger) {
		l.Info("greeting issued", zap.Int64("id", 7))
	})
	if len(payloads) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(payloads))
	}
	payload := payloads[0]

	if got := payload["severity"]; got != "INFO" {
		t.Fatalf("expected severity INFO, got %v", got)
	}
	if _, exists := payload["level"]; exists {
		t.Fatal("did not expect level field")
	}
	if msg := payload["message"]; msg != "greeting issued" {
		t.Fatalf("expected message 'greeting issued', got %v", msg)
	}
	if id, ok := payload["id"].(float64); !ok || id != 7 {
		t.Fatalf("expected id 7, got %v", payload["id"])
	}
	ts, ok := payload["timestamp"].(string)
	if !ok {
		t.Fatalf("expected timestamp string, got %T", payload["timestamp"])
	}
	if _, err := time.Parse(RFC3339Micros, ts); err != nil {
		t.Fatalf("timestamp is not RFC3339Micros: %v", err)
	}
	if caller, _ := payload["caller"].(string); !strings.Contains(caller, "logger_test.go") {
		t.Fatalf("expected caller to reference logger_test.go, got %q", caller)
	}
}

func TestEncodeSeverityMapping(t *testing.T) {
	tests := []struct {
		level    zapcore.Level
		expected string
	}{
		{zapcore.DebugLevel, "DEBUG"},
		{zapcore.InfoLevel, "INFO"},
		{zapcore.WarnLevel, "WARNING"},
		{zapcore.ErrorLevel, "ERROR"},
		{zapcore.DPanicLevel, "CRITICAL"},
		{zapcore.PanicLevel, "ALERT"},
		{zapcore.FatalLevel, "EMERGENCY"},
		{zapcore.Level(99), "DEFAULT"},
	}

	for _, tt := range tests {
		enc := &captureArrayEncoder{}
		encodeSeverity(tt.level, enc)
		if len(enc.values) != 1 || enc.values[0] != tt.expected {
			t.Fatalf("encodeSeverity(%v) = %v, want %s", tt.level, enc.values, tt.expected)
		}
	}
}

func TestEncodeTimeMicrosUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, 1, 15, 13, 30, 0, 123456000, loc)

	enc := &captureArrayEncoder{}
	encodeTimeMicros(ts, enc)

	if len(enc.values) != 1 {
		t.Fatalf("expected one value, got %v", enc.values)
	}
	if want := "2024-01-15T10:30:00.123456Z"; enc.values[0] != want {
		t.Fatalf("expected %s, got %s", want, enc.values[0])
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	payloads := captureLogOutput(t, func(l *zap.Logger) {
		l.Debug("hidden")
		l.Info("visible")
	})
	if len(payloads) != 1 {
		t.Fatalf("expected only the info line, got %d lines", len(payloads))
	}
	if payloads[0]["message"] != "visible" {
		t.Fatalf("unexpected message: %v", payloads[0]["message"])
	}
}

func TestSetLevelAppliesToSharedLogger(t *testing.T) {
	SetLevel(zapcore.DebugLevel)
	t.Cleanup(func() { SetLevel(zapcore.InfoLevel) })

	payloads := captureLogOutput(t, func(l *zap.Logger) {
		l.Debug("now visible")
	})
	if len(payloads) != 1 || payloads[0]["severity"] != "DEBUG" {
		t.Fatalf("expected a DEBUG line, got %v", payloads)
	}
	if Level() != zapcore.DebugLevel {
		t.Fatalf("expected Level() debug, got %s", Level())
	}
}

func TestSetLevelAppliesToDerivedLoggers(t *testing.T) {
	t.Cleanup(func() { SetLevel(zapcore.InfoLevel) })

	payloads := captureLogOutput(t, func(l *zap.Logger) {
		derived := l.With(zap.String("requestId", "req-1"))
		SetLevel(zapcore.ErrorLevel)
		derived.Warn("suppressed")
		derived.Error("kept")
	})
	if len(payloads) != 1 || payloads[0]["message"] != "kept" {
		t.Fatalf("expected only the error line, got %v", payloads)
	}
}

func TestLoggerAndSugarShareCore(t *testing.T) {
	resetLoggerForTest()

	if Logger() != Logger() {
		t.Fatal("expected Logger() to return the same instance")
	}
	if Logger().Core() != Sugar().Desugar().Core() {
		t.Fatal("expected Logger and Sugar to share the same core")
	}
	if err := Err(); err != nil {
		t.Fatalf("expected nil init error, got %v", err)
	}
}

func TestSyncWithoutInit(t *testing.T) {
	resetLoggerForTest()
	if err := Sync(); err != nil {
		t.Logf("Sync returned error (may be expected on some platforms): %v", err)
	}
}

type captureArrayEncoder struct {
	values []string
}

func (c *captureArrayEncoder) AppendBool(bool)             {}
func (c *captureArrayEncoder) AppendByteString([]byte)     {}
func (c *captureArrayEncoder) AppendComplex128(complex128) {}
func (c *captureArrayEncoder) AppendComplex64(complex64)   {}
func (c *captureArrayEncoder) AppendFloat64(float64)       {}
func (c *captureArrayEncoder) AppendFloat32(float32)       {}
func (c *captureArrayEncoder) AppendInt(int)               {}
func (c *captureArrayEncoder) AppendInt64(int64)           {}
func (c *captureArrayEncoder) AppendInt32(int32)           {}
func (c *captureArrayEncoder) AppendInt16(int16)           {}
func (c *captureArrayEncoder) AppendInt8(int8)             {}
func (c *captureArrayEncoder) AppendString(s string)       { c.values = append(c.values, s) }
func (c *captureArrayEncoder) AppendUint(uint)             {}
func (c *captureArrayEncoder) AppendUint64(uint64)         {}
func (c *captureArrayEncoder) AppendUint32(uint32)         {}
func (c *captureArrayEncoder) AppendUint16(uint16)         {}
func (c *captureArrayEncoder) AppendUint8(uint8)           {}
func (c *captureArrayEncoder) AppendUintptr(uintptr)       {}
