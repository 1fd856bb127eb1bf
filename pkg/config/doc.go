// Package config loads the console configuration.
//
// # Overview
//
// Settings are layered: built-in defaults, then the YAML file named by NX_CONFIG_FILE,
// then environment variables. The result is validated before use.
//
// # File
//
//	api:
//	  base_url: https://admin.example.com/api/
//	  timeout: 5s
//	session:
//	  system_name: v3-admin-vite
//	  store: redis            # memory, file, redis
//	  redis_url: redis://localhost:6379
//	  ttl: 12h
//	routes:
//	  table: /etc/nxadmin/routes.yaml
//	  filter: true
//	  whitelist: [/login]
//	observability:
//	  log_level: info
//	  metrics_enabled: true
//	  metrics_file: /var/lib/node_exporter/nxadmin.prom
//
// # Environment
//
//	NX_BASE_API           API base URL
//	NX_API_TIMEOUT        request timeout, e.g. 5s
//	NX_APP_SYSTEM_NAME    prefix of persisted keys
//	NX_SESSION_STORE      memory, file or redis
//	NX_SESSION_FILE       file store path
//	NX_REDIS_URL          redis store URL
//	NX_REDIS_PASSWORD     redis password
//	NX_REDIS_DB           redis database
//	NX_SESSION_TTL        redis key TTL
//	NX_ROUTE_TABLE        route table YAML file
//	NX_ROUTE_FILTER       filter async routes by permission
//	NX_LOGIN_PATH         login route path
//	NX_WHITELIST          comma separated paths reachable without a token
//	NX_LOG_LEVEL          debug, info, warn or error
//	NX_METRICS_ENABLED    record Prometheus metrics
//	NX_METRICS_FILE       textfile the metrics are written to on exit
//	NX_TRACING_ENABLED    wrap the HTTP transport with OpenTelemetry
//
// # Related Packages
//
//   - pkg/cli: Wires the configuration into the console
package config
