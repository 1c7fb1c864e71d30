// Package config handles loading and validating Whip Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The broker (whipd) and the actuator agent (whipagent) share one config
// structure; WHIP_API_PORT selects the broker listening port and
// WHIP_AGENT_TOKEN injects the agent's bearer secret without putting it
// in the file.
//
// Security Considerations:
//   - Sensitive values (tokens, passwords) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
