// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the connection defaults read from the config file. Command
// line flags take precedence.
type Config struct {
	MIDI string `yaml:"midi"`

	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`

	WebSocket struct {
		URL         string `yaml:"url"`
		Username    string `yaml:"username"`
		NoSSLVerify bool   `yaml:"no-ssl-verify"`
	} `yaml:"websocket"`
}

// loadConfigFile reads and parses the config file. A missing default file
// is not an error.
func loadConfigFile(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, ".config", "v2ctl", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return &config, nil
}

// applyConfigFile fills in flag values the user did not specify.
func applyConfigFile() {
	config, err := loadConfigFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}
	if config == nil {
		return
	}

	if midiPortName == "" {
		midiPortName = config.MIDI
	}

	if portName == "" {
		portName = config.Serial.Port
	}

	if baudRate == 31250 && config.Serial.Baud > 0 {
		baudRate = config.Serial.Baud
	}

	if wsURL == "" {
		wsURL = config.WebSocket.URL
	}

	if wsUsername == "" {
		wsUsername = config.WebSocket.Username
	}

	if !wsNoSSLVerify {
		wsNoSSLVerify = config.WebSocket.NoSSLVerify
	}
}
