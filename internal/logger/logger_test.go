package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New("ledger-api")
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("deposit completed")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "deposit completed") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	ctxLog := FromContext(ctx)
	ctxLog.Info().Msg("from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("Expected embedded logger to receive output, got: %s", buf.String())
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"identity_id": "123",
		"operation":   "withdraw",
	})
	logWithFields.Info().Msg("checked")

	output := buf.String()
	if !strings.Contains(output, "identity_id") || !strings.Contains(output, "123") {
		t.Errorf("Expected output to contain identity_id field, got: %s", output)
	}
	if !strings.Contains(output, "operation") || !strings.Contains(output, "withdraw") {
		t.Errorf("Expected output to contain operation field, got: %s", output)
	}
}
