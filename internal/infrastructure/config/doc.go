// Package config handles loading and validating jughead-core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Ball address bindings can be seeded from the dispatch.devices list or from
// JUGHEAD_BALL_<N>_ADDRESS variables. Bindings made at runtime are not
// written back; every restart begins from this configuration.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.GetDispatchTimeout())
package config
