package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mbruggen/homeflux/pkg/pathing"
)

var (
	ActiveCollectorConfig *CollectorConfig
	ActiveLiveAPIConfig   *LiveAPIConfig
)

func LoadCollectorConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "collector.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &CollectorConfig{
			MainsSource:   "livefeed",
			LiveFeedHost:  "localhost:9039",
			RetentionDays: 92,
		}
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveCollectorConfig = cfg
		return nil
	}

	var config CollectorConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveCollectorConfig = &config
	return nil
}

func LoadLiveAPIConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "live_api.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &LiveAPIConfig{
			SerialDevice:       "/dev/ttyUSB0",
			Baudrate:           9600,
			ListenAddress:      "0.0.0.0",
			ListenPort:         9039,
			InverterModbusPort: 502,
			InverterRegister:   32080,
		}
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveLiveAPIConfig = cfg
		return nil
	}

	var config LiveAPIConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveLiveAPIConfig = &config
	return nil
}
