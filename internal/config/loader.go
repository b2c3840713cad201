/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	ingestpolicy "dirpx.dev/dlogd/apis/ingest/policy"
	alevel "dirpx.dev/dlogd/apis/level"
	"github.com/spf13/viper"
)

// ErrInvalid corresponds to the ConfigurationError taxonomy kind: an
// invalid or missing required setting, fatal before any socket is bound.
var ErrInvalid = errors.New("config: invalid setting")

// Load layers configuration the same way the original daemon's config
// crate did: config/default.yaml, then config/$RUN_MODE.yaml, then
// config/local.yaml (each optional), then DLOGD_-prefixed
// environment variables, highest precedence last.
func Load(configDir string) (Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	applyDefaults(v)

	v.SetConfigName("default")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("%w: reading default.yaml: %v", ErrInvalid, err)
		}
	}

	runMode := os.Getenv("RUN_MODE")
	if runMode != "" {
		v.SetConfigName(runMode)
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Settings{}, fmt.Errorf("%w: reading %s.yaml: %v", ErrInvalid, runMode, err)
			}
		}
	}

	v.SetConfigName("local")
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Settings{}, fmt.Errorf("%w: reading local.yaml: %v", ErrInvalid, err)
		}
	}

	v.SetEnvPrefix("DLOGD")
	v.AutomaticEnv()

	return build(v)
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 9999)
	v.SetDefault("protocol", "UDP")
	v.SetDefault("threads", 1)
	v.SetDefault("buffer_bound", 1024)
	v.SetDefault("filedir", ".")
	v.SetDefault("filename", "dlogd.log")
	v.SetDefault("rotation.policy", "ByDuration")
	v.SetDefault("rotation.count", 10)
	v.SetDefault("rotation.duration", 86400)
	v.SetDefault("formatting.startingmsg", true)
	v.SetDefault("formatting.endingmsg", true)
	v.SetDefault("backpressure_policy", "Discard")
	v.SetDefault("server.max_connections", 1000)
	v.SetDefault("metrics_port", 9090)
	v.SetDefault("debug", false)

	v.SetDefault("diagnostics.level", "Info")
	v.SetDefault("diagnostics.format", "console")
	v.SetDefault("diagnostics.file", "")
	v.SetDefault("diagnostics.max_size_mb", 50)
	v.SetDefault("diagnostics.max_backups", 5)
	v.SetDefault("diagnostics.compress", true)
}

func build(v *viper.Viper) (Settings, error) {
	protocol, err := ParseProtocol(v.GetString("protocol"))
	if err != nil {
		return Settings{}, err
	}

	rotationKind, err := ParseRotationKind(v.GetString("rotation.policy"))
	if err != nil {
		return Settings{}, err
	}

	bp, err := ingestpolicy.ParseBackpressure(v.GetString("backpressure_policy"))
	if err != nil {
		return Settings{}, err
	}

	diagLevel, err := alevel.ParseLevel(v.GetString("diagnostics.level"))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: diagnostics.level %v", ErrInvalid, err)
	}

	diagFormat, err := ParseDiagFormat(v.GetString("diagnostics.format"))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Host:     v.GetString("host"),
		Port:     v.GetInt("port"),
		Protocol: protocol,
		Threads:  v.GetInt("threads"),

		BufferBound: v.GetInt("buffer_bound"),

		FileDir:  v.GetString("filedir"),
		Filename: v.GetString("filename"),

		RotationPolicy:   rotationKind,
		RotationCount:    v.GetInt("rotation.count"),
		RotationDuration: time.Duration(v.GetInt("rotation.duration")) * time.Second,

		StartingMsg: v.GetBool("formatting.startingmsg"),
		EndingMsg:   v.GetBool("formatting.endingmsg"),

		Backpressure: bp,

		MaxConnections: v.GetInt("server.max_connections"),
		MetricsPort:    v.GetInt("metrics_port"),

		Debug: v.GetBool("debug"),

		DiagLevel:      diagLevel,
		DiagFormat:     diagFormat,
		DiagFile:       v.GetString("diagnostics.file"),
		DiagMaxSizeMB:  v.GetInt("diagnostics.max_size_mb"),
		DiagMaxBackups: v.GetInt("diagnostics.max_backups"),
		DiagCompress:   v.GetBool("diagnostics.compress"),
	}

	if err := validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func validate(s Settings) error {
	if s.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalid)
	}
	if s.Port <= 0 {
		return fmt.Errorf("%w: port must be positive", ErrInvalid)
	}
	if s.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive", ErrInvalid)
	}
	if s.BufferBound <= 0 {
		return fmt.Errorf("%w: buffer_bound must be positive", ErrInvalid)
	}
	if s.Filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalid)
	}
	if s.RotationCount <= 0 {
		return fmt.Errorf("%w: rotation.count must be positive", ErrInvalid)
	}
	if s.RotationPolicy == RotationByDuration && s.RotationDuration <= 0 {
		return fmt.Errorf("%w: rotation.duration is required when rotation.policy=ByDuration", ErrInvalid)
	}
	if s.MaxConnections <= 0 {
		return fmt.Errorf("%w: server.max_connections must be positive", ErrInvalid)
	}
	if s.MetricsPort <= 0 {
		return fmt.Errorf("%w: metrics_port must be positive", ErrInvalid)
	}
	return nil
}
