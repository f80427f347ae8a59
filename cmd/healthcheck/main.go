// Command healthcheck probes the local liveness endpoint. It is meant for
// container HEALTHCHECK instructions, where curl may not be available.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	url := fmt.Sprintf("http://localhost:%s/livez", port)

	resp, err := client.Get(url)
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
