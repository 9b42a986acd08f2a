// Command smoketest probes a running timetable API instance and reports
// per-endpoint status and latency. Intended for post-deploy checks; exits
// non-zero when a critical target fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Body     string `json:"body,omitempty"`
	Expect   int    `json:"expect,omitempty"`
	Critical bool   `json:"critical"`
}

type probeConfig struct {
	Targets []target `json:"targets"`
}

type probeResult struct {
	Target   target
	Status   int
	OK       bool
	Duration time.Duration
	Err      error
}

func defaultTargets(termID string) []target {
	return []target{
		{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/schedule/" + termID, Expect: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/schedule/statistics/" + termID, Expect: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/schedule/report/" + termID, Expect: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/schedule/available-slots?termId=" + termID, Expect: http.StatusOK},
	}
}

func loadTargets(path, termID string) ([]target, error) {
	if path == "" {
		return defaultTargets(termID), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg probeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg.Targets, nil
}

func probe(client *http.Client, baseURL, token string, tg target) probeResult {
	var body *strings.Reader
	if tg.Body != "" {
		body = strings.NewReader(tg.Body)
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(tg.Method, strings.TrimRight(baseURL, "/")+tg.Path, body)
	if err != nil {
		return probeResult{Target: tg, Err: err}
	}
	if tg.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return probeResult{Target: tg, Duration: elapsed, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	expect := tg.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	return probeResult{
		Target:   tg,
		Status:   resp.StatusCode,
		OK:       resp.StatusCode == expect,
		Duration: elapsed,
	}
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "base URL of the API instance")
	termID := flag.String("term", "", "term id used by the default targets")
	cfgPath := flag.String("config", "", "optional JSON file with probe targets")
	token := flag.String("token", "", "optional bearer token for guarded routes")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	if *cfgPath == "" && *termID == "" {
		fmt.Fprintln(os.Stderr, "either -term or -config is required")
		os.Exit(2)
	}

	targets, err := loadTargets(*cfgPath, *termID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	criticalFailures := 0
	for _, tg := range targets {
		res := probe(client, *baseURL, *token, tg)
		switch {
		case res.Err != nil:
			fmt.Printf("FAIL %-6s %-55s error=%v\n", tg.Method, tg.Path, res.Err)
		case res.OK:
			fmt.Printf("ok   %-6s %-55s status=%d latency=%s\n", tg.Method, tg.Path, res.Status, res.Duration.Round(time.Millisecond))
		default:
			fmt.Printf("FAIL %-6s %-55s status=%d latency=%s\n", tg.Method, tg.Path, res.Status, res.Duration.Round(time.Millisecond))
		}
		if tg.Critical && (res.Err != nil || !res.OK) {
			criticalFailures++
		}
	}

	if criticalFailures > 0 {
		fmt.Fprintf(os.Stderr, "%d critical probe(s) failed\n", criticalFailures)
		os.Exit(1)
	}
}
