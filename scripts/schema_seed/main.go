package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type schemaPayload struct {
	NationCode string `json:"nation_code"`
	Version    string `json:"version"`

	ToPivotUnclassified string `json:"to_pivot_unclassified"`
	ToPivotRestricted   string `json:"to_pivot_restricted"`
	ToPivotConfidential string `json:"to_pivot_confidential"`
	ToPivotSecret       string `json:"to_pivot_secret"`
	ToPivotTopSecret    string `json:"to_pivot_top_secret"`

	FromPivotUnclassified string `json:"from_pivot_unclassified"`
	FromPivotRestricted   string `json:"from_pivot_restricted"`
	FromPivotConfidential string `json:"from_pivot_confidential"`
	FromPivotSecret       string `json:"from_pivot_secret"`
	FromPivotTopSecret    string `json:"from_pivot_top_secret"`

	Caveats     string `json:"caveats,omitempty"`
	AuthorityID string `json:"authority_id"`
}

type seedFile struct {
	Schemas []schemaPayload `json:"schemas"`
}

type result struct {
	Payload  schemaPayload
	Status   int
	Skipped  bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base     string
		token    string
		seedPath string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("CROSSMARK_TOKEN"), "Bearer token with officer role")
	flag.StringVar(&seedPath, "seed", filepath.Join("scripts", "schema_seed", "schemas.json"), "Path to JSON seed file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	schemas, err := loadSeed(seedPath)
	if err != nil {
		log.Fatalf("failed to load seed file: %v", err)
	}
	if token == "" {
		log.Fatal("no token supplied (use -token or CROSSMARK_TOKEN)")
	}

	client := &http.Client{Timeout: timeout}
	var (
		results []result
		failed  int
	)

	for _, s := range schemas {
		res := registerSchema(client, base, token, s)
		if res.Error != nil {
			failed++
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Registered: %d, Skipped (already present): %d, Failed: %d\n",
		len(results)-failed-countSkipped(results), countSkipped(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadSeed(path string) ([]schemaPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Schemas) == 0 {
		return nil, fmt.Errorf("no schemas defined in %s", path)
	}
	return f.Schemas, nil
}

func registerSchema(client *http.Client, base, token string, payload schemaPayload) result {
	res := result{Payload: payload}

	body, err := json.Marshal(payload)
	if err != nil {
		res.Error = fmt.Errorf("marshal payload: %w", err)
		return res
	}

	url := strings.TrimRight(base, "/") + "/api/v1/schemas"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		res.Error = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	switch {
	case resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict:
		// Version already registered, fine for repeated seeding runs.
		res.Skipped = true
	default:
		msg, _ := io.ReadAll(resp.Body)
		res.Error = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return res
}

func countSkipped(results []result) int {
	n := 0
	for _, r := range results {
		if r.Skipped {
			n++
		}
	}
	return n
}

func printReport(results []result) {
	fmt.Println("Schema Seed Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if res.Skipped {
			status = "SKIP"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Payload.NationCode, res.Payload.Version)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}
