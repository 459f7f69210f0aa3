package config

import (
	"context"
	"os"

	"epay-gateway/internal/domains/payment/gateway/epay"
)

// envKeys maps gateway setting keys to environment variables.
var envKeys = map[string]string{
	epay.SettingURL:         "EPAY_URL",
	epay.SettingPID:         "EPAY_PID",
	epay.SettingKey:         "EPAY_KEY",
	epay.SettingType:        "EPAY_TYPE",
	epay.SettingDisplayName: "EPAY_DISPLAY_NAME",
	epay.SettingIcon:        "EPAY_ICON",
	epay.SettingEnabled:     "EPAY_ENABLED",
}

// EnvProvider reads gateway settings from the environment on every call, so
// a changed variable is picked up without a restart of the caller's state.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

func (p *EnvProvider) Settings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string, len(envKeys))
	for key, env := range envKeys {
		if v, ok := p.lookup(env); ok {
			settings[key] = v
		}
	}
	return settings, nil
}

// MapProvider serves a fixed set of settings.
type MapProvider map[string]string

func (p MapProvider) Settings(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

var (
	_ epay.ConfigProvider = (*EnvProvider)(nil)
	_ epay.ConfigProvider = MapProvider(nil)
)
