package pathing

import (
	"log"
	"os"
	"path/filepath"
)

// Ensure directories exist on startup
func init() {
	dirs := []string{
		GetDataDir(),
		GetSiteDir(),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			err := os.MkdirAll(dir, 0755)
			if err != nil {
				log.Fatal(err)
			}
		}
	}
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "homeflux.db")
}

func GetDataDir() string {
	return "/var/lib/homeflux"
}

func GetConfigDir() string {
	return "/etc/homeflux"
}

// GetSiteDir is where the status webpage and its status-icon files live.
func GetSiteDir() string {
	return filepath.Join(GetDataDir(), "site")
}

// GetIconDir holds the source PNGs the status icons are copied from.
func GetIconDir() string {
	return filepath.Join(GetDataDir(), "www")
}
