// Package config provides configuration management for the alann reasoning
// core.
//
// # Overview
//
// The config package uses Viper to load the reasoner's tuning Parameters
// from a YAML file and environment variables. It provides a type-safe
// configuration structure with validation, default values, and automatic
// file creation.
//
// # Configuration File
//
// The configuration is stored at ~/.alann/config.yaml and is automatically
// created with sensible defaults on first use.
//
// # Environment Variables
//
// All configuration values can be overridden using environment variables
// with the ALANN_ prefix.
//
// Examples:
//   - ALANN_CONCEPT_BAG_SIZE=5000
//   - ALANN_NOVELTY_HORIZON=12
//
// # Usage Example
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/normanking/alann/internal/config"
//	)
//
//	func main() {
//	    params, err := config.Load()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := params.Validate(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Validation
//
// Validate() rejects out-of-range parameters; per the core's error-handling
// design this is treated as a fatal construction error, never a silent
// default substitution.
package config
