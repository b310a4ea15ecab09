// Package cmn - runtime configuration, modeled on ais/gconfig.go's
// atomically-swapped globalConfig/configOwner pattern (generalized here
// to the handful of options spec §6 recognizes; there is no persisted
// config file, since the runtime persists nothing).
/*
 * Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"os"
	"strconv"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"github.com/parcio/dartrt/cmn/nlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the options spec §6 recognizes at runtime init.
type Config struct {
	SharedWindows  bool   `json:"shared_windows"`
	LogLevel       string `json:"log_level"`
	MaxTeamDomains int    `json:"max_team_domains"`
}

func defaultConfig() *Config {
	return &Config{
		SharedWindows:  true,
		LogLevel:       "info",
		MaxTeamDomains: 32,
	}
}

// owner holds the live config behind an atomic pointer, the same shape
// as ais/gconfig.go's configOwner (there: sync.Mutex-guarded swap under
// a load-to-clone-to-store cycle; here: a single atomic swap, since
// dartrt's config has no multi-writer modify() transaction).
type owner struct {
	ptr atomic.Pointer[Config]
}

var gco owner

func init() {
	gco.ptr.Store(defaultConfig())
}

// GCO mirrors aistore's package-global cmn.GCO accessor name.
func GCO() *Config { return gco.ptr.Load() }

// LoadFromEnv populates config from DARTRT_* environment variables,
// mirroring ais/gconfig.go's load() falling back to defaults when
// nothing is set.
func LoadFromEnv() *Config {
	c := defaultConfig()
	if v := os.Getenv("DARTRT_SHARED_WINDOWS"); v != "" {
		c.SharedWindows = v != "off" && v != "false"
	}
	if v := os.Getenv("DARTRT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DARTRT_MAX_TEAM_DOMAINS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxTeamDomains = n
		}
	}
	gco.ptr.Store(c)
	nlog.SetLevel(nlog.ParseLevel(c.LogLevel))
	return c
}

// Dump renders the current config as JSON for diagnostics, using the
// teacher's fast json-iterator codec rather than encoding/json.
func Dump() string {
	b, err := json.MarshalIndent(GCO(), "", "  ")
	if err != nil {
		return "<config: " + err.Error() + ">"
	}
	return string(b)
}
