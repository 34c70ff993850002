// charger_collector polls the charger hub for per-hour charge registers and
// stores them. The hub reports whole days; the collector walks forward from
// the database high-water mark one day at a time.
package main

import (
	"log"
	"strconv"
	"time"

	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/led"
	"github.com/mbruggen/homeflux/pkg/meterdb"
	"github.com/mbruggen/homeflux/pkg/myenergi"
	"github.com/mbruggen/homeflux/pkg/scheduler"
	"github.com/mbruggen/homeflux/pkg/sources"
)

func main() {
	if err := config.LoadCollectorConfig(); err != nil {
		log.Fatalf("Failed to load collector config: %v", err)
	}
	cfg := config.ActiveCollectorConfig
	if cfg.MyenergiHubSerial == "" || cfg.MyenergiZappiSerial == "" {
		log.Fatal("No charger hub configured")
	}

	src := sources.Charger()
	store := meterdb.NewStore(meterdb.Open(), src.Table, src.Columns)

	client, err := myenergi.NewClient(cfg.MyenergiHubSerial, cfg.MyenergiHubPassword)
	if err != nil {
		log.Fatalf("Failed to reach charger hub: %v", err)
	}
	siteID, _ := strconv.ParseFloat(cfg.MyenergiZappiSerial, 64)

	gaps := scheduler.NewGapTracker()
	day, err := store.LatestDatapoint()
	if err != nil {
		log.Fatalf("Failed to read high-water mark: %v", err)
	}
	if day.IsZero() {
		day = time.Now().AddDate(0, 0, -1)
	}

	loop := &scheduler.Loop{
		SampleInterval: src.SampleInterval(),
		ReportInterval: src.ReportInterval,
		Killer:         scheduler.NewKiller(),
		Status: func(colour string) {
			led.Set("charger", colour)
		},
		Sample: func() error {
			now := time.Now()
			hours, err := client.ZappiHistory(cfg.MyenergiZappiSerial, day)
			if err != nil {
				return err
			}
			for _, h := range hours {
				smp := sources.TranslateCharger(h, siteID)
				// the running hour is not complete yet
				if smp.SampleEpoch > now.Add(-time.Hour).Unix() {
					continue
				}
				store.Queue(smp)
			}
			return nil
		},
		Report: func() error {
			prev := day
			if err := store.Insert(); err != nil {
				return err
			}
			latest, err := store.LatestDatapoint()
			if err != nil {
				return err
			}
			next, hole := gaps.Next(prev, latest, time.Now())
			if hole {
				log.Printf("No new charger data after %s, probing from %s",
					latest.Format(time.DateTime), next.Format(time.DateTime))
			}
			day = next
			return nil
		},
	}

	log.Println("Starting charger collector")
	if err := loop.Run(); err != nil {
		log.Fatalf("Charger collector stopped: %v", err)
	}
}
