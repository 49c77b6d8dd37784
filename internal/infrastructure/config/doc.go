// Package config handles loading and validating the MAX! Cube bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MAXCUBE_*)
//   - Validation of required fields
//   - Default value handling, including the gateway port 62910
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, gw := range cfg.MaxCube.Gateways {
//	    fmt.Println(gw.Address())
//	}
package config
