// live_api owns the P1 serial port and broadcasts every telegram as a live
// reading over websocket. It also exposes the optional local inverter
// readout, so only one process ever talks to the meter hardware.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mbruggen/homeflux/pkg/config"
	"github.com/mbruggen/homeflux/pkg/livefeed"
	"github.com/mbruggen/homeflux/pkg/solarinverter"
	"github.com/mbruggen/homeflux/pkg/telegram"
	"github.com/mbruggen/homeflux/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network only
	},
}

func main() {
	if err := config.LoadLiveAPIConfig(); err != nil {
		log.Fatalf("Failed to load live API config: %v", err)
	}
	cfg := config.ActiveLiveAPIConfig

	hub := livefeed.NewHub()
	reader := telegram.NewReader(cfg.SerialDevice, cfg.Baudrate)
	inverter := solarinverter.NewReader(cfg.InverterIP, cfg.InverterModbusPort, cfg.InverterRegister)

	reader.StartReading(
		func(reading *types.Sample) {
			hub.Broadcast(reading)
		},
		func(err error) {
			if err != nil {
				log.Fatalf("Error reading P1 port: %v", err)
			}
		},
	)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "homeflux live API",
			"status":  "running",
		})
	})

	http.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		reading := reader.GetLatestReading()
		w.Header().Set("Content-Type", "application/json")
		if reading == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No readings available yet",
			})
			return
		}
		json.NewEncoder(w).Encode(reading)
	})

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.Add(conn)

		// Send current reading immediately if available
		if reading := reader.GetLatestReading(); reading != nil {
			if data, err := json.Marshal(reading); err == nil {
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}

		// Keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Remove(conn)
				break
			}
		}
	})

	// May be fast or slow depending on cached response from inverter.
	http.HandleFunc("/solar", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		power, err := inverter.ReadPower()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]int32{
			"currentProduction": power,
		})
	})

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("Starting homeflux live API on %s", listener)
	log.Fatal(http.ListenAndServe(listener, nil))
}
