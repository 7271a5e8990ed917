package email

import (
	"context"
	"strings"
	"testing"

	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

func TestRenderPasswordReset(t *testing.T) {
	subject, body, err := Render(TemplatePasswordReset, map[string]any{
		"name":               "Ana",
		"reset_url":          "http://localhost:8080/reset-password?token=abc",
		"expires_in_minutes": 30,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Redefinição de senha" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "reset-password?token=abc") {
		t.Fatalf("expected reset link in body, got %s", body)
	}
	if !strings.Contains(body, "30 minutos") {
		t.Fatalf("expected expiry in body")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("missing", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestNewFromConfigFallsBackToNoOp(t *testing.T) {
	provider := NewFromConfig(config.Config{}, zap.NewNop())
	if _, ok := provider.(*NoOpProvider); !ok {
		t.Fatalf("expected NoOpProvider, got %T", provider)
	}
	if err := provider.SendTemplate(context.Background(), []string{"a@example.com"}, TemplatePasswordReset, map[string]any{}); err != nil {
		t.Fatalf("noop send: %v", err)
	}

	provider = NewFromConfig(config.Config{Email: config.EmailConfig{SMTPHost: "smtp.local", SMTPPort: 25}}, zap.NewNop())
	if _, ok := provider.(*SMTPProvider); !ok {
		t.Fatalf("expected SMTPProvider, got %T", provider)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("LIS <no-reply@lis.local>", []string{"a@example.com"}, "Oi", "<p>x</p>", "01HX"))
	if !strings.Contains(msg, correlation.HeaderName+": 01HX\r\n") {
		t.Fatalf("expected correlation header, got %q", msg)
	}
	if got := envelopeFrom("LIS <no-reply@lis.local>"); got != "no-reply@lis.local" {
		t.Fatalf("unexpected envelope sender %q", got)
	}
}
