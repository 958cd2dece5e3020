package settings

import (
	"net/url"
	"strconv"
	"time"

	"github.com/ordishs/gocore"
)

func getString(key, defaultValue string) string {
	value, found := gocore.Config().Get(key)
	if !found {
		return defaultValue
	}

	return value
}

func getMultiString(key, sep string, defaultValue []string) []string {
	value, found := gocore.Config().GetMulti(key, sep)
	if !found {
		return defaultValue
	}

	return value
}

func getInt(key string, defaultValue int) int {
	value, found := gocore.Config().GetInt(key)
	if !found {
		return defaultValue
	}

	return value
}

func getFloat64(key string, defaultValue float64) float64 {
	value, found := gocore.Config().Get(key)
	if !found || value == "" {
		return defaultValue
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return f
}

func getURL(key, defaultValue string) *url.URL {
	value, err, found := gocore.Config().GetURL(key)
	if err != nil || !found || value == nil {
		value, _ = url.Parse(defaultValue)
	}

	return value
}

func getBool(key string, defaultValue bool) bool {
	return gocore.Config().GetBool(key, defaultValue)
}

// getDuration accepts Go duration strings ("5s", "1m30s"); a bare integer is read as seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, found := gocore.Config().Get(key)
	if !found || value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	if seconds, found := gocore.Config().GetInt(key); found {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
