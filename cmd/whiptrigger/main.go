// whiptrigger fires a single whip command at a running whipd.
//
// It is the scriptable caller: cron jobs, chat bots, and shell one-liners
// use it instead of hand-rolling curl invocations.
//
// Exit codes:
//
//	0  command accepted by the broker (2xx)
//	1  broker reachable but refused the command, or network failure
//	2  invalid arguments (caught locally, nothing sent)
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/martinevsky/whip-core/internal/command"
)

// requestTimeout bounds the whole HTTP exchange.
const requestTimeout = 10 * time.Second

// Exit codes.
const (
	exitOK      = 0
	exitRefused = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("whiptrigger", flag.ContinueOnError)
	flags.SetOutput(stderr)

	baseURL := flags.String("base-url", "http://localhost:60606", "whipd base URL")
	token := flags.String("token", "", "bearer token (required)")
	duration := flags.Int("duration", 0, "actuation duration in seconds (1-60)")
	side := flags.String("side", "", "side: left, right or both (default both)")

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	// Validate locally before touching the network; a typo should not
	// produce an HTTP round trip.
	if *token == "" {
		fmt.Fprintln(stderr, "whiptrigger: -token is required")
		return exitUsage
	}

	parsedSide, err := command.ParseSide(*side)
	if err != nil {
		fmt.Fprintf(stderr, "whiptrigger: %v\n", err)
		return exitUsage
	}

	cmd := command.Command{Duration: *duration, Side: parsedSide}
	if err := cmd.Validate(); err != nil {
		fmt.Fprintf(stderr, "whiptrigger: %v\n", err)
		return exitUsage
	}

	body, err := json.Marshal(map[string]any{
		"duration": cmd.Duration,
		"side":     string(cmd.Side),
	})
	if err != nil {
		fmt.Fprintf(stderr, "whiptrigger: encoding request: %v\n", err)
		return exitRefused
	}

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/whip", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(stderr, "whiptrigger: %v\n", err)
		return exitUsage
	}
	req.Header.Set("Authorization", "Bearer "+*token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "whiptrigger: %v\n", err)
		return exitRefused
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Fprintf(stdout, "%s\n", bytes.TrimSpace(payload))
		return exitOK
	}

	fmt.Fprintf(stderr, "whiptrigger: broker returned %d: %s\n", resp.StatusCode, bytes.TrimSpace(payload))
	return exitRefused
}
