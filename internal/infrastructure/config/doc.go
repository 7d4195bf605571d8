// Package config handles loading and validating ScopeSync service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SCOPESYNC_*)
//   - Validation of required fields and timing relationships
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables.
//
// Usage:
//
//	cfg, err := config.Load("configs/scopesync.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Mode)
package config
