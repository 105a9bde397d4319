// Command mtsload ingests test-stand .dat logs into per-station tables.
//
// Usage:
//
//	mtsload run     # one ingestion pass (the scheduled-task entry point)
//	mtsload init    # record current file sizes without loading anything
//	mtsload serve   # cron-driven passes plus the status server
//	mtsload state   # print the resume map
package main

import (
	"os"

	_ "github.com/JonMunkholm/mtsload/internal/core/stations" // Register all stations
)

func main() {
	os.Exit(execute())
}
