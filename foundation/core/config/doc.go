// File: doc.go
// Title: Configuration Package Documentation
// Description: Package documentation for the generic configuration loader.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: Reduced to loading, typed getters and env overrides

// Package config loads TOML and YAML configuration files into a nested map
// and provides typed access by dot-separated keys.
//
//	cfg, err := config.LoadWithOptions("callexpr.toml", config.LoadOptions{EnvPrefix: "CALLEXPR"})
//	if err != nil {
//		return err
//	}
//	depth := cfg.GetInt("parser.max_depth")
//
// With an EnvPrefix set, every getter first consults the environment variable
// PREFIX_SECTION_KEY (CALLEXPR_PARSER_MAX_DEPTH above). Load errors are
// *mdwerror.Error values carrying CodeNotFound, CodeInvalidInput or
// CodeConfigError.
package config
