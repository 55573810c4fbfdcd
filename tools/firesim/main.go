// Command firesim emulates fire-detection devices posting signed sensor
// readings to the ingest endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"firewatch-cloud/internal/auth"
)

type config struct {
	baseURL     string
	secret      string
	devices     string
	interval    time.Duration
	fireChance  float64
	maxOccupant int
	once        bool
}

type reading struct {
	ID             string  `json:"id"`
	FireDetection  int     `json:"fireDetection"`
	Confidence     float64 `json:"confidence"`
	HumanDetection int     `json:"humanDetection"`
	Timestamp      int64   `json:"timestamp"`
}

func main() {
	cfg := parseConfig()
	if cfg.secret == "" {
		log.Fatal("INGEST_HMAC_SECRET or -secret is required")
	}
	devices := strings.Split(cfg.devices, ",")
	if len(devices) == 0 || devices[0] == "" {
		log.Fatal("-devices is required (comma separated ids)")
	}

	endpoint := strings.TrimRight(cfg.baseURL, "/") + "/api/v1/ingest/readings"
	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	log.Printf("posting readings for %d devices to %s every %s (fire chance %.2f)",
		len(devices), endpoint, cfg.interval, cfg.fireChance)

	for {
		for _, deviceID := range devices {
			deviceID = strings.TrimSpace(deviceID)
			if deviceID == "" {
				continue
			}
			if err := postReading(client, endpoint, cfg, rng, deviceID); err != nil {
				log.Printf("post %s: %v", deviceID, err)
			}
		}
		if cfg.once {
			return
		}
		time.Sleep(cfg.interval)
	}
}

func postReading(client *http.Client, endpoint string, cfg config, rng *rand.Rand, deviceID string) error {
	now := time.Now().UTC()
	sample := reading{
		ID:             deviceID,
		FireDetection:  0,
		Confidence:     rng.Float64() * 8,
		HumanDetection: rng.Intn(cfg.maxOccupant + 1),
		Timestamp:      now.UnixMilli(),
	}
	if rng.Float64() < cfg.fireChance {
		sample.FireDetection = 1
		sample.Confidence = 55 + rng.Float64()*45
	}

	body, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(now.Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", auth.SignReading([]byte(cfg.secret), timestamp, body))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if sample.FireDetection == 1 {
		log.Printf("fire reading %s confidence=%.0f occupants=%d -> %s",
			deviceID, sample.Confidence, sample.HumanDetection, strings.TrimSpace(string(payload)))
	}
	return nil
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.baseURL, "url", getenvDefault("FIREWATCH_URL", "http://localhost:8080"), "service base url")
	flag.StringVar(&cfg.secret, "secret", os.Getenv("INGEST_HMAC_SECRET"), "ingest hmac secret")
	flag.StringVar(&cfg.devices, "devices", "tenant-001-dev-01", "comma separated device ids")
	flag.DurationVar(&cfg.interval, "interval", 5*time.Second, "delay between rounds")
	flag.Float64Var(&cfg.fireChance, "fire-chance", 0.05, "probability a reading reports fire")
	flag.IntVar(&cfg.maxOccupant, "max-occupants", 20, "upper bound for detected occupants")
	flag.BoolVar(&cfg.once, "once", false, "post one round and exit")
	flag.Parse()
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
