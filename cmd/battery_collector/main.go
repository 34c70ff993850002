// battery_collector samples the home battery's state of charge every minute
// and stores 15-minute averages.
package main

import (
	"log"
	"time"

	"github.com/mbruggen/homeflux/pkg/battery"
	"github.com/mbruggen/homeflux/pkg/compactor"
	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/led"
	"github.com/mbruggen/homeflux/pkg/meterdb"
	"github.com/mbruggen/homeflux/pkg/scheduler"
	"github.com/mbruggen/homeflux/pkg/sources"
	"github.com/mbruggen/homeflux/pkg/types"
)

func main() {
	if err := config.LoadCollectorConfig(); err != nil {
		log.Fatalf("Failed to load collector config: %v", err)
	}
	cfg := config.ActiveCollectorConfig
	if cfg.BatteryHost == "" {
		log.Fatal("No battery host configured")
	}

	src := sources.Battery()
	store := meterdb.NewStore(meterdb.Open(), src.Table, src.Columns)
	client := battery.NewClient(cfg.BatteryHost)

	var buffer []types.Sample
	loop := &scheduler.Loop{
		SampleInterval: src.SampleInterval(),
		ReportInterval: src.ReportInterval,
		Killer:         scheduler.NewKiller(),
		Status: func(colour string) {
			led.Set("battery", colour)
		},
		Sample: func() error {
			status, err := client.Status()
			if err != nil {
				return err
			}
			buffer = append(buffer,
				sources.TranslateBattery(status.StateOfCharge, status.StateOfHealth, 0, time.Now()))
			return nil
		},
		Report: func() error {
			finalized, remainder := compactor.Compact(buffer, src.Policy)
			for _, smp := range finalized {
				store.Queue(smp)
			}
			if err := store.Insert(); err != nil {
				return err
			}
			buffer = remainder
			return nil
		},
	}

	log.Println("Starting battery collector")
	if err := loop.Run(); err != nil {
		log.Fatalf("Battery collector stopped: %v", err)
	}
}
