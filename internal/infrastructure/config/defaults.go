package config

import "time"

// defaults lists every recognised key. Empty values are still listed so
// that FP_ variables can override them.
var defaults = map[string]any{
	"app.name": "freightport",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               0, // derived from the driver
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "freightport",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,
	"database.auto_migrate":       false,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                   "",
	"jwt.refresh_secret":           "",
	"jwt.access_token_expiration":  15 * time.Minute,
	"jwt.refresh_token_expiration": 7 * 24 * time.Hour,
	"jwt.issuer":                   "freightport",
	"jwt.max_refresh_count":        10,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       30 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(10 << 20),
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":     []string{},
	"http.docs_enabled":        true,
	"http.docs_allowed_ips":    []string{},

	"storage.enabled":          false,
	"storage.endpoint":         "",
	"storage.region":           "us-east-1",
	"storage.bucket":           "freightport",
	"storage.access_key":       "",
	"storage.secret_key":       "",
	"storage.use_path_style":   false,
	"storage.presign_expiry":   15 * time.Minute,
	"storage.max_upload_bytes": int64(10 << 20),

	"wechat.enabled":            false,
	"wechat.app_id":             "",
	"wechat.app_secret":         "",
	"wechat.base_url":           "https://api.weixin.qq.com",
	"wechat.template_file":      "config/wechat_templates.yaml",
	"wechat.mini_program_state": "formal",
	"wechat.timeout":            10 * time.Second,

	"ocr.enabled":    false,
	"ocr.base_url":   "https://aip.baidubce.com",
	"ocr.api_key":    "",
	"ocr.api_secret": "",
	"ocr.timeout":    20 * time.Second,

	"tracking.enabled":        false,
	"tracking.base_url":       "",
	"tracking.api_key":        "",
	"tracking.webhook_secret": "",
	"tracking.callback_url":   "",
	"tracking.timeout":        10 * time.Second,
	"tracking.dedupe_ttl":     72 * time.Hour,

	"kafka.enabled":       false,
	"kafka.brokers":       []string{},
	"kafka.topic":         "freightport.events",
	"kafka.batch_timeout": 100 * time.Millisecond,

	"scheduler.enabled":                     false,
	"scheduler.overdue_sweep_interval":      time.Hour,
	"scheduler.notification_retry_interval": 5 * time.Minute,
	"scheduler.notification_max_retries":    5,
	"scheduler.job_timeout":                 5 * time.Minute,
	"scheduler.batch_size":                  200,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.profiling_server":        "",

	"onboarding.auto_approve_rule":    "",
	"onboarding.default_credit_limit": "0",

	"bootstrap.admin_username": "admin",
	"bootstrap.admin_email":    "",
	"bootstrap.admin_password": "",
}
