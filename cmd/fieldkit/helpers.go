package main

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusCaser = cases.Title(language.English)

// titleCase renders a lowercase lifecycle state for table output.
func titleCase(value string) string {
	return statusCaser.String(strings.TrimSpace(value))
}

// truncate shortens long free-text fields for table cells.
func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

// formatTimestamp renders an RFC3339 wire timestamp in local display form.
func formatTimestamp(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
