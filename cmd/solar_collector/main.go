// solar_collector polls the vendor monitoring API for quarter-hour
// production energy and stores it. The API already buckets the data, so
// rows are inserted as-is; missed windows are backfilled from the database
// high-water mark, with an increasing day-jump to vault over provider
// outages.
package main

import (
	"log"
	"time"

	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/led"
	"github.com/mbruggen/homeflux/pkg/meterdb"
	"github.com/mbruggen/homeflux/pkg/scheduler"
	"github.com/mbruggen/homeflux/pkg/solaredge"
	"github.com/mbruggen/homeflux/pkg/sources"
)

func main() {
	if err := config.LoadCollectorConfig(); err != nil {
		log.Fatalf("Failed to load collector config: %v", err)
	}
	cfg := config.ActiveCollectorConfig
	if cfg.SolarAPIKey == "" {
		log.Fatal("No solar API key configured")
	}

	src := sources.Production()
	store := meterdb.NewStore(meterdb.Open(), src.Table, src.Columns)

	client := solaredge.NewClient(cfg.SolarAPIKey)
	sites, err := client.SiteList()
	if err != nil {
		log.Fatalf("Failed to list production sites: %v", err)
	}
	if len(sites) == 0 {
		log.Fatal("API key has no production sites attached")
	}
	site := sites[0]
	log.Printf("Collecting production for site %d (%s)", site.ID, site.Name)

	gaps := scheduler.NewGapTracker()
	windowStart, err := store.LatestDatapoint()
	if err != nil {
		log.Fatalf("Failed to read high-water mark: %v", err)
	}
	if windowStart.IsZero() {
		windowStart = time.Now().AddDate(0, 0, -1)
	}

	loop := &scheduler.Loop{
		SampleInterval: src.SampleInterval(),
		ReportInterval: src.ReportInterval,
		Killer:         scheduler.NewKiller(),
		Status: func(colour string) {
			led.Set("solar", colour)
		},
		Sample: func() error {
			now := time.Now()
			windowEnd := windowStart.AddDate(0, 0, 1)
			if windowEnd.After(now) {
				windowEnd = now
			}

			values, err := client.EnergyDetails(site.ID,
				windowStart.In(time.UTC), windowEnd.In(time.UTC))
			if err != nil {
				return err
			}
			for _, v := range values {
				smp, err := sources.TranslateProduction(v.Date, v.Value, float64(site.ID))
				if err != nil {
					log.Printf("Skipping production value: %v", err)
					continue
				}
				// the API pads its window with empty future slots
				if smp.SampleEpoch > now.Unix() {
					continue
				}
				store.Queue(smp)
			}
			return nil
		},
		Report: func() error {
			prev := windowStart
			if err := store.Insert(); err != nil {
				return err
			}
			latest, err := store.LatestDatapoint()
			if err != nil {
				return err
			}
			next, hole := gaps.Next(prev, latest, time.Now())
			if hole {
				log.Printf("No new production data after %s, probing from %s",
					latest.Format(time.DateTime), next.Format(time.DateTime))
			}
			windowStart = next
			return nil
		},
	}

	log.Println("Starting solar collector")
	if err := loop.Run(); err != nil {
		log.Fatalf("Solar collector stopped: %v", err)
	}
}
