package epay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// =====================================================
// EPAY CONFIGURATION
// =====================================================

// Setting keys as stored by the host's plugin configuration.
const (
	SettingURL         = "url"
	SettingPID         = "pid"
	SettingKey         = "key"
	SettingType        = "type"
	SettingDisplayName = "display_name"
	SettingIcon        = "icon"
	SettingEnabled     = "enabled"

	DefaultDisplayName = "LINUX DO Credit"
	DefaultIcon        = "💎"
)

// ConfigProvider returns the string-keyed settings for this gateway.
type ConfigProvider interface {
	Settings(ctx context.Context) (map[string]string, error)
}

// ConfigInvalidator is implemented by providers that cache settings.
type ConfigInvalidator interface {
	Invalidate(ctx context.Context) error
}

type GatewayConfig struct {
	GatewayURL   string // Gateway base URL, e.g. https://credit.linux.do/epay
	MerchantID   string // pid
	SharedSecret string // key, used for signing and sent on status queries
	PaymentType  string // Optional fixed "type" parameter
	DisplayName  string
	Icon         string
	Enabled      bool
}

// ConfigFromSettings maps raw settings to a GatewayConfig. Missing
// credentials are kept empty; callers decide whether that matters.
func ConfigFromSettings(settings map[string]string) GatewayConfig {
	cfg := GatewayConfig{
		GatewayURL:   strings.TrimSpace(settings[SettingURL]),
		MerchantID:   settings[SettingPID],
		SharedSecret: settings[SettingKey],
		PaymentType:  settings[SettingType],
		DisplayName:  settings[SettingDisplayName],
		Icon:         settings[SettingIcon],
		Enabled:      parseEnabled(settings[SettingEnabled]),
	}

	if cfg.DisplayName == "" {
		cfg.DisplayName = DefaultDisplayName
	}
	if cfg.Icon == "" {
		cfg.Icon = DefaultIcon
	}

	return cfg
}

// LoadConfig reads the settings fresh from provider.
func LoadConfig(ctx context.Context, provider ConfigProvider) (GatewayConfig, error) {
	settings, err := provider.Settings(ctx)
	if err != nil {
		return GatewayConfig{}, fmt.Errorf("load gateway settings: %w", err)
	}
	return ConfigFromSettings(settings), nil
}

// Validate checks the settings the gateway needs to accept our requests.
// Building a redirect does not call this.
func (c GatewayConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.GatewayURL, validation.Required, is.URL),
		validation.Field(&c.MerchantID, validation.Required),
		validation.Field(&c.SharedSecret, validation.Required),
	)
}

// BaseURL returns the gateway URL without trailing slashes.
func (c GatewayConfig) BaseURL() string {
	return strings.TrimRight(c.GatewayURL, "/")
}

func (c GatewayConfig) SubmitURL() string {
	return c.BaseURL() + "/pay/submit.php"
}

func (c GatewayConfig) QueryURL() string {
	return c.BaseURL() + "/api.php"
}

func parseEnabled(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return enabled
}
