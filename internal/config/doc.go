// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads arda settings.
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ARDA_*, GROQ_API_KEY), optionally from .env
//   - ~/.arda/config.toml
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	dir, _ := cfg.DataDir()
package config
