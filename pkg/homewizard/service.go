// Package homewizard reads the local HomeWizard P1 dongle over its REST
// API. The dongle sits on the LAN; no cloud round-trip is involved.
package homewizard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

// Measurement is the subset of the dongle's data endpoint the collector
// uses. Fields absent from the payload unmarshal to zero and fall through
// to the template defaults during translation.
type Measurement struct {
	ImportT1KWh  float64 `json:"total_power_import_t1_kwh"`
	ImportT2KWh  float64 `json:"total_power_import_t2_kwh"`
	ExportT1KWh  float64 `json:"total_power_export_t1_kwh"`
	ExportT2KWh  float64 `json:"total_power_export_t2_kwh"`
	ActivePowerW float64 `json:"active_power_w"`
	ActiveTariff int     `json:"active_tariff"`
}

type Client struct {
	host  string
	token string
	hc    *http.Client
}

func NewClient(host, token string) *Client {
	return &Client{
		host:  host,
		token: token,
		hc:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Measurement fetches one reading from the dongle.
func (c *Client) Measurement() (Measurement, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://%s/api/v1/data", c.host), nil)
	if err != nil {
		return Measurement{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Measurement{}, fmt.Errorf("dongle read failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Measurement{}, fmt.Errorf("dongle returned status %d", resp.StatusCode)
	}

	var m Measurement
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Measurement{}, fmt.Errorf("decoding dongle response: %w", err)
	}
	return m, nil
}

// Translate converts a dongle measurement to the canonical mains shape,
// stamped at translation time. The dongle reports one signed active power;
// a negative value means the site is exporting, so the magnitude moves to
// the out field and import is zeroed.
func Translate(m Measurement, now time.Time) types.Sample {
	powerIn := m.ActivePowerW
	powerOut := 0.0
	if powerIn < 0 {
		powerOut = -powerIn
		powerIn = 0
	}
	tariff := m.ActiveTariff
	if tariff == 0 {
		tariff = 1
	}
	return types.NewSample(now, map[string]float64{
		"T1in":     float64(int64(m.ImportT1KWh * 1000)),
		"T2in":     float64(int64(m.ImportT2KWh * 1000)),
		"T1out":    float64(int64(m.ExportT1KWh * 1000)),
		"T2out":    float64(int64(m.ExportT2KWh * 1000)),
		"powerin":  float64(int64(powerIn)),
		"powerout": float64(int64(powerOut)),
		"tarif":    float64(tariff),
		"swits":    0,
	})
}
