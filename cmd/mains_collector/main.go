// mains_collector samples the smart meter, compacts the raw readings into
// 15-minute buckets and stores them in the meter database. Readings come
// from the live_api websocket feed or, alternatively, straight from a
// HomeWizard P1 dongle.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/mbruggen/homeflux/pkg/compactor"
	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/homewizard"
	"github.com/mbruggen/homeflux/pkg/led"
	"github.com/mbruggen/homeflux/pkg/livefeed"
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

	src := sources.Mains()
	store := meterdb.NewStore(meterdb.Open(), src.Table, src.Columns)

	sample, err := newSampler(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var buffer []types.Sample
	loop := &scheduler.Loop{
		SampleInterval: src.SampleInterval(),
		ReportInterval: src.ReportInterval,
		Killer:         scheduler.NewKiller(),
		Status: func(colour string) {
			led.Set("mains", colour)
		},
		Sample: func() error {
			smp, err := sample()
			if err != nil {
				return err
			}
			buffer = append(buffer, smp)
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

	log.Printf("Starting mains collector (source: %s)", cfg.MainsSource)
	if err := loop.Run(); err != nil {
		log.Fatalf("Mains collector stopped: %v", err)
	}
}

// newSampler wires the configured mains source into a single read function.
func newSampler(cfg *config.CollectorConfig) (func() (types.Sample, error), error) {
	switch cfg.MainsSource {
	case "livefeed", "":
		feed := &livefeed.Feed{}
		done := make(chan struct{})
		go livefeed.Listen(cfg.LiveFeedHost, feed, done)
		var lastEpoch int64
		return func() (types.Sample, error) {
			smp, err := feed.Next(lastEpoch)
			if err != nil {
				return types.Sample{}, err
			}
			lastEpoch = smp.SampleEpoch
			return smp, nil
		}, nil
	case "homewizard":
		client := homewizard.NewClient(cfg.HomeWizardHost, cfg.HomeWizardToken)
		return func() (types.Sample, error) {
			m, err := client.Measurement()
			if err != nil {
				return types.Sample{}, err
			}
			return homewizard.Translate(m, time.Now()), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown mains source %q", cfg.MainsSource)
	}
}
