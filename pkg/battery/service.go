// Package battery reads the home battery's local status endpoint.
package battery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Status is the charge state reported by the battery controller.
type Status struct {
	StateOfCharge float64
	StateOfHealth float64
}

type Client struct {
	host string
	hc   *http.Client
}

func NewClient(host string) *Client {
	return &Client{
		host: host,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the current charge state. The controller reports fractions
// (0..1); they are scaled to percent here so the stored values read
// naturally.
func (c *Client) Status() (Status, error) {
	resp, err := c.hc.Get(fmt.Sprintf("http://%s/api/v1/power/status", c.host))
	if err != nil {
		return Status{}, fmt.Errorf("battery read failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("battery returned status %d", resp.StatusCode)
	}

	var payload struct {
		Sessy struct {
			StateOfCharge float64 `json:"state_of_charge"`
			StateOfHealth float64 `json:"state_of_health"`
		} `json:"sessy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Status{}, fmt.Errorf("decoding battery response: %w", err)
	}
	return Status{
		StateOfCharge: payload.Sessy.StateOfCharge * 100,
		StateOfHealth: payload.Sessy.StateOfHealth * 100,
	}, nil
}
