package config

// CollectorConfig configures the collector daemons. One file serves all of
// them; each daemon reads only the fields it needs.
type CollectorConfig struct {
	// MainsSource selects where mains samples come from:
	// "livefeed" (websocket feed from live_api) or "homewizard".
	MainsSource  string `toml:"mains_source"`
	LiveFeedHost string `toml:"live_feed_host"`

	HomeWizardHost  string `toml:"homewizard_host"`
	HomeWizardToken string `toml:"homewizard_token"`

	SolarAPIKey string `toml:"solar_api_key"`

	MyenergiHubSerial   string `toml:"myenergi_hub_serial"`
	MyenergiHubPassword string `toml:"myenergi_hub_password"`
	MyenergiZappiSerial string `toml:"myenergi_zappi_serial"`

	BatteryHost string `toml:"battery_host"`

	PriceURL string `toml:"price_url"`

	// RetentionDays bounds how long price rows are kept. Compacted meter
	// data is never pruned; reports need it. Zero disables cleanup.
	RetentionDays int `toml:"retention_days"`
}

// LiveAPIConfig configures the live_api daemon that owns the P1 serial port.
type LiveAPIConfig struct {
	SerialDevice  string `toml:"serial_device"`
	Baudrate      uint   `toml:"baudrate"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`

	// Optional local inverter readout over modbus TCP.
	InverterIP         string `toml:"inverter_ip"`
	InverterModbusPort int    `toml:"inverter_modbus_port"`
	InverterRegister   uint16 `toml:"inverter_register"`
}
