package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CheckHTTPServer probes the health path of a running node, for example
// CheckHTTPServer("http://localhost:18232", "/health").
func CheckHTTPServer(address string, healthPath string) CheckFunc {
	target := strings.TrimSuffix(address, "/") + "/" + strings.TrimPrefix(healthPath, "/")

	client := &http.Client{Timeout: 2 * time.Second}

	return func(ctx context.Context, _ bool) (int, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("invalid health url %s", target), err
		}

		resp, err := client.Do(req)
		if err != nil {
			return http.StatusServiceUnavailable, fmt.Sprintf("%s is not accepting connections", address), err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return http.StatusOK, fmt.Sprintf("%s is serving", address), nil
		}

		return http.StatusServiceUnavailable, fmt.Sprintf("%s returned status %d", address, resp.StatusCode), nil
	}
}
