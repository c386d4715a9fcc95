package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	if err := printStatus(&http.Client{Timeout: 10 * time.Second}, api, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printStatus copies the plain-text status report of the daemon at base to w.
func printStatus(c *http.Client, base string, w io.Writer) error {
	resp, err := c.Get(strings.TrimRight(base, "/") + "/api/status.txt")
	if err != nil {
		return fmt.Errorf("error contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
