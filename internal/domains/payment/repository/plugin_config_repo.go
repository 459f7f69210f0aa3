package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/pkg/cache"
	"epay-gateway/pkg/logger"
)

// =====================================================
// PLUGIN CONFIG REPOSITORY
// =====================================================

// PluginConfigRepository reads gateway settings from v2_plugin(code, config,
// is_enabled) with a cache-aside layer in front. The config column holds a
// flat JSON object.
type PluginConfigRepository struct {
	db    *sql.DB
	cache cache.Cache
	code  string
	ttl   time.Duration
}

var (
	_ epay.ConfigProvider    = (*PluginConfigRepository)(nil)
	_ epay.ConfigInvalidator = (*PluginConfigRepository)(nil)
)

// NewPluginConfigRepository creates the repository. cache may be nil.
func NewPluginConfigRepository(db *sql.DB, c cache.Cache, code string, ttl time.Duration) *PluginConfigRepository {
	return &PluginConfigRepository{db: db, cache: c, code: code, ttl: ttl}
}

func (r *PluginConfigRepository) cacheKey() string {
	return fmt.Sprintf("plugin:config:%s", r.code)
}

// Settings returns the plugin settings. A missing or disabled plugin row
// yields an empty map.
func (r *PluginConfigRepository) Settings(ctx context.Context) (map[string]string, error) {
	// STEP 1: CHECK CACHE FIRST
	if r.cache != nil {
		var cached map[string]string
		found, err := r.cache.Get(ctx, r.cacheKey(), &cached)
		if err == nil && found {
			return cached, nil
		}
	}

	// STEP 2: CACHE MISS - QUERY DATABASE
	query := `
		SELECT config
		FROM v2_plugin
		WHERE code = $1 AND is_enabled = TRUE
	`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, r.code).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Warn("plugin config not found or disabled", map[string]interface{}{
			"plugin": r.code,
		})
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin config: %w", err)
	}

	settings, err := decodeSettings(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plugin config %s: %w", r.code, err)
	}

	// STEP 3: POPULATE CACHE (best effort)
	if r.cache != nil {
		if err := r.cache.Set(ctx, r.cacheKey(), settings, r.ttl); err != nil {
			logger.Error("failed to cache plugin config", err)
		}
	}

	return settings, nil
}

// Invalidate drops the cached settings so the next read hits the database.
func (r *PluginConfigRepository) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, r.cacheKey())
}

// decodeSettings flattens a JSON object into string values. Numbers keep
// their literal form and booleans become "true"/"false".
func decodeSettings(raw []byte) (map[string]string, error) {
	settings := make(map[string]string)
	if len(bytes.TrimSpace(raw)) == 0 {
		return settings, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values map[string]interface{}
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}

	for k, v := range values {
		switch val := v.(type) {
		case nil:
			settings[k] = ""
		case string:
			settings[k] = val
		case json.Number:
			settings[k] = val.String()
		case bool:
			settings[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("setting %q has unsupported type %T", k, v)
		}
	}

	return settings, nil
}
