package sms

import (
	"context"
	"testing"

	"github.com/Alijeyrad/destek_backend/config"
)

func TestNewFromConfig_Disabled(t *testing.T) {
	client, err := NewFromConfig(config.SMSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if client.IsEnabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestNewFromConfig_EnabledWithoutAPIKey(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR:   config.SMSIRConfig{TemplateID: "ack"},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when API key is missing")
	}
}

func TestNewFromConfig_EnabledWithAPIKey(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		SMSIR: config.SMSIRConfig{
			APIKey:     "test-api-key",
			SecretKey:  "test-secret-key",
			TemplateID: "ack",
		},
	}
	client, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if !client.IsEnabled() {
		t.Error("Expected client to be enabled")
	}
}

func TestSendTemplate_DisabledClient(t *testing.T) {
	client := &Client{enabled: false}
	if err := client.SendTemplate(context.Background(), "+905321234567", map[string]string{"ticket": "t1"}); err != nil {
		t.Errorf("Expected no error for disabled client, got: %v", err)
	}
}

func TestSendTemplate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		phone      string
		templateID string
		params     map[string]string
	}{
		{"empty phone number", "", "ack", map[string]string{"ticket": "t1"}},
		{"empty template ID", "+905321234567", "", map[string]string{"ticket": "t1"}},
		{"no params", "+905321234567", "ack", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &Client{enabled: true, templateID: tt.templateID}
			if err := client.SendTemplate(context.Background(), tt.phone, tt.params); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}
