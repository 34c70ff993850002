// Package solaredge is a thin client for the SolarEdge monitoring API. It
// only knows the two calls the solar collector needs; everything else the
// API offers is out of scope.
package solaredge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mbruggen/homeflux/pkg/types"
)

const defaultBaseURL = "https://monitoringapi.solaredge.com"

const (
	maxRetries = 3
	retryDelay = 23 * time.Second
)

// Site is one production site attached to the account.
type Site struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EnergyValue is one quarter-hour slot from the energy details endpoint.
// Slots the API has no data for yet carry no value at all.
type EnergyValue struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

type Client struct {
	apiKey  string
	baseURL string
	hc      *http.Client

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		sleep:   time.Sleep,
	}
}

// SiteList returns the sites visible to the API key.
func (c *Client) SiteList() ([]Site, error) {
	var payload struct {
		Sites struct {
			Site []Site `json:"site"`
		} `json:"sites"`
	}
	params := url.Values{}
	if err := c.get("/sites/list", params, &payload); err != nil {
		return nil, err
	}
	return payload.Sites.Site, nil
}

// EnergyDetails fetches quarter-hour production energy for one site over
// the given window. Timestamps in the response are in the site's timezone
// as configured at the vendor, which this system fixes to UTC.
func (c *Client) EnergyDetails(siteID int, start, end time.Time) ([]EnergyValue, error) {
	var payload struct {
		EnergyDetails struct {
			Meters []struct {
				Type   string        `json:"type"`
				Values []EnergyValue `json:"values"`
			} `json:"meters"`
		} `json:"energyDetails"`
	}
	params := url.Values{}
	params.Set("timeUnit", "QUARTER_OF_AN_HOUR")
	params.Set("startTime", start.Format(types.DTFormat))
	params.Set("endTime", end.Format(types.DTFormat))
	if err := c.get(fmt.Sprintf("/site/%d/energyDetails", siteID), params, &payload); err != nil {
		return nil, err
	}
	if len(payload.EnergyDetails.Meters) == 0 {
		return nil, nil
	}
	return payload.EnergyDetails.Meters[0].Values, nil
}

// get performs one API call with a bounded retry on transport errors. The
// vendor rate-limits aggressively, so the retry delay is long and fixed.
func (c *Client) get(path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	callURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(retryDelay)
		}
		resp, err := c.hc.Get(callURL)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("%s returned status %d", path, resp.StatusCode)
			continue
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decoding %s response: %w", path, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", path, maxRetries, lastErr)
}
