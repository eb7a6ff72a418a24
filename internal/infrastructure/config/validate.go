package config

import (
	"errors"
	"fmt"
	"slices"
)

var supportedDrivers = []string{"postgres", "mysql", "sqlite"}

// validate reports every problem at once.
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	db := c.Database
	if !slices.Contains(supportedDrivers, db.Driver) {
		fail("database.driver must be one of %v, got %q", supportedDrivers, db.Driver)
	}
	switch {
	case db.MaxOpenConns <= 0:
		fail("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		fail("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			fail("jwt.secret must be at least 32 characters in production")
		}
		if db.Driver != "sqlite" && (db.Password == "" || db.Password == "postgres") {
			fail("database.password must be set to a non-default value in production")
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			fail("http.cors_allow_origins cannot contain '*' in production")
		}
	}

	requires := []struct {
		enabled bool
		missing bool
		msg     string
	}{
		{c.Wechat.Enabled, c.Wechat.AppID == "" || c.Wechat.AppSecret == "", "wechat.app_id and wechat.app_secret"},
		{c.OCR.Enabled, c.OCR.APIKey == "" || c.OCR.APISecret == "", "ocr.api_key and ocr.api_secret"},
		{c.Tracking.Enabled, c.Tracking.BaseURL == "", "tracking.base_url"},
		{c.Tracking.Enabled, c.Tracking.WebhookSecret == "", "tracking.webhook_secret"},
		{c.Kafka.Enabled, len(c.Kafka.Brokers) == 0, "kafka.brokers"},
		{c.Storage.Enabled, c.Storage.AccessKey == "" || c.Storage.SecretKey == "", "storage.access_key and storage.secret_key"},
		{c.Telemetry.ProfilingEnabled, c.Telemetry.ProfilingServer == "", "telemetry.profiling_server"},
	}
	for _, r := range requires {
		if r.enabled && r.missing {
			fail("%s required when the integration is enabled", r.msg)
		}
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be between 0 and 1, got %g", r)
	}
	return errors.Join(errs...)
}
