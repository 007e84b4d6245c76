// Package config provides configuration management for ewp-validator.
//
// Configuration is read from a single YAML file. The default location is
// ~/.config/ewp-validator/config.yaml; commands accept --config to point
// elsewhere. A missing file is not an error: GetDefaultConfig supplies every
// value the validator needs except the catalogue location.
//
// # Layers
//
// Values are applied in this order, later layers winning:
//
//  1. GetDefaultConfig
//  2. the YAML file (LoadConfig / LoadFile)
//  3. .env files loaded into the environment (LoadDotEnv)
//  4. EWP_VALIDATOR_* environment variables (ApplyEnv)
//  5. command line flags
//
// # Example
//
//	validator:
//	  timeout: 10s
//	  parallel: 4
//	credentials:
//	  tls:
//	    certFile: /etc/ewp/validator.crt
//	    keyFile: /etc/ewp/validator.key
//	  httpSigKeyFile: /etc/ewp/httpsig.pem
//	catalogue:
//	  path: /var/lib/ewp/catalogue.yaml
//	  watch: true
//	logging:
//	  level: debug
//
// # Errors
//
// Parse failures are returned as ConfigurationError, carrying the file,
// line and suggestions. Config.Validate collects every problem into a
// ConfigurationErrorCollection so users can fix them in one pass.
package config
