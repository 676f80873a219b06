package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/alepar/airquality/airquality"
	"github.com/alepar/airquality/airquality/awair"
	"github.com/alepar/airquality/airquality/config"
	"github.com/alepar/airquality/airquality/export"
	"github.com/alepar/airquality/airquality/kaiterra"
)

// CLI args
var (
	configPath  = flag.String("config", ".env", "path to the env file with API keys and device ids")
	outputFile  = flag.String("out", export.DefaultOutputFile, "path of the CSV file to write")
	httpTimeout = flag.Duration("timeout", 10*time.Second, "per-request timeout for vendor API calls")
)

func init() {
	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()

	banner := strings.Repeat("=", 60)
	fmt.Println(banner)
	fmt.Println("Air Quality Data Extractor")
	fmt.Println(banner)
	fmt.Printf("Start time: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	ctx := context.Background()

	awairExtractor := &awair.Extractor{
		APIKey:         cfg.AwairAPIKey,
		BaseURL:        awair.DefaultBaseURL,
		RateLimitDelay: awair.DefaultRateLimitDelay,
		Client:         &http.Client{Timeout: *httpTimeout},
	}
	kaiterraExtractor := &kaiterra.Extractor{
		APIKey:  cfg.KaiterraAPIKey,
		BaseURL: kaiterra.DefaultBaseURL,
		Client:  &http.Client{Timeout: *httpTimeout},
	}

	awairRecords := runExtractor(ctx, awairExtractor, cfg.AwairDeviceIDs)
	kaiterraRecords := runExtractor(ctx, kaiterraExtractor, cfg.KaiterraDeviceIDs)

	if len(awairRecords) > 0 || len(kaiterraRecords) > 0 {
		fmt.Println("Consolidating data and exporting to CSV...")
		if err := export.ConsolidateAndExport(awairRecords, kaiterraRecords, *outputFile); err != nil {
			log.Errorf("failed to export: %s", err)
		}
	} else {
		fmt.Printf("No devices configured. Please add device ids to %s\n", *configPath)
	}

	fmt.Printf("\nEnd time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Println(banner)
}

// runExtractor drives one vendor over its device list; per-device failures
// come back as error rows, so this never aborts the run.
func runExtractor(ctx context.Context, ex airquality.Extractor, deviceIDs []string) []airquality.Record {
	if len(deviceIDs) == 0 {
		fmt.Printf("No %s devices configured.\n\n", ex.Vendor())
		return nil
	}

	fmt.Printf("Extracting data from %d %s device(s)...\n", len(deviceIDs), ex.Vendor())
	records := ex.FetchAll(ctx, deviceIDs)
	fmt.Printf("✓ %s extraction complete\n\n", ex.Vendor())

	return records
}
