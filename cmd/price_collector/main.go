// price_collector fetches the day-ahead energy prices once and exits. It is
// meant to run from a daily timer after the prices for tomorrow are
// published, unlike the device collectors which free-run.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/meterdb"
	"github.com/mbruggen/homeflux/pkg/sources"
)

// priceRow is one hourly row from the price feed.
type priceRow struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

func main() {
	if err := config.LoadCollectorConfig(); err != nil {
		log.Fatalf("Failed to load collector config: %v", err)
	}
	cfg := config.ActiveCollectorConfig
	if cfg.PriceURL == "" {
		log.Fatal("No price feed configured")
	}

	src := sources.Prices()
	store := meterdb.NewStore(meterdb.Open(), src.Table, src.Columns)

	hc := &http.Client{Timeout: 30 * time.Second}
	resp, err := hc.Get(cfg.PriceURL)
	if err != nil {
		log.Fatalf("Price feed unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Price feed returned status %d", resp.StatusCode)
	}

	var rows []priceRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		log.Fatalf("Failed to decode price feed: %v", err)
	}

	for _, row := range rows {
		smp, err := sources.TranslatePrice(row.Date, row.Price)
		if err != nil {
			log.Printf("Skipping price row: %v", err)
			continue
		}
		store.Queue(smp)
	}
	if err := store.Insert(); err != nil {
		log.Fatalf("Failed to store prices: %v", err)
	}
	log.Printf("Stored %d price rows", len(rows))

	// old prices are operational data, not report history
	if cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays).Unix()
		if err := store.PruneBefore(cutoff); err != nil {
			log.Printf("Price retention cleanup failed: %v", err)
		}
	}
}
