// Package health aggregates the readiness and liveness checks of the node's
// services and their dependencies into one JSON report.
package health

import (
	"context"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CheckFunc reports the status of one dependency as an HTTP status code and a
// message. A message that is itself a JSON object is nested as dependencies.
type CheckFunc func(ctx context.Context, checkLiveness bool) (int, string, error)

type Check struct {
	Name  string
	Check CheckFunc
}

type report struct {
	Resource     string                `json:"resource,omitempty"`
	Status       string                `json:"status"`
	Error        string                `json:"error,omitempty"`
	Message      string                `json:"message,omitempty"`
	Dependencies []jsoniter.RawMessage `json:"dependencies,omitempty"`
}

// CheckAll runs every check in order. The overall status is 503 as soon as one
// check fails or reports anything but 200.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	overall := report{Dependencies: make([]jsoniter.RawMessage, 0, len(checks))}
	overallStatus := http.StatusOK

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		r := report{
			Resource: check.Name,
			Status:   strconv.Itoa(status),
		}

		if err != nil {
			r.Error = err.Error()
		}

		if isJSONObject(message) {
			r.Dependencies = []jsoniter.RawMessage{jsoniter.RawMessage(message)}
		} else {
			r.Message = message
		}

		b, err := json.Marshal(r)
		if err != nil {
			return http.StatusInternalServerError, "", err
		}

		overall.Dependencies = append(overall.Dependencies, b)
	}

	overall.Status = strconv.Itoa(overallStatus)

	b, err := json.Marshal(overall)
	if err != nil {
		return http.StatusInternalServerError, "", err
	}

	return overallStatus, string(b), nil
}

func isJSONObject(s string) bool {
	return len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' && json.Valid([]byte(s))
}
