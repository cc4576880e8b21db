package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Common parameter formatters and parsers

// PercentFormatter formats a 0-1 level as a percentage
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}

// PercentParser parses percentage strings back to a 0-1 level. Bare numbers
// are taken as levels.
func PercentParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, "%") {
		val, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "%")), 64)
		if err != nil {
			return 0, err
		}
		return val / 100, nil
	}
	return strconv.ParseFloat(str, 64)
}

// SecondsFormatter formats time in seconds with appropriate units
func SecondsFormatter(seconds float64) string {
	if seconds < 1 {
		return fmt.Sprintf("%.0f ms", seconds*1000)
	}
	return fmt.Sprintf("%.2f s", seconds)
}

// SecondsParser parses time strings into seconds
func SecondsParser(str string) (float64, error) {
	str = strings.TrimSpace(str)

	if strings.HasSuffix(str, "ms") {
		val, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "ms")), 64)
		if err != nil {
			return 0, err
		}
		return val / 1000, nil
	}

	str = strings.TrimSuffix(str, "s")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

// OnOffParser parses On/Off strings
func OnOffParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	switch str {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	default:
		return 0, fmt.Errorf("expected 'on' or 'off', got: %s", str)
	}
}
