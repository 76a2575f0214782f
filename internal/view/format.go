package view

import (
	"fmt"
	"strings"
)

// Format selects a renderer.
type Format string

const (
	FormatStdout Format = "stdout"
	FormatHTML   Format = "html"
)

// Formats lists every supported output format.
var Formats = []Format{FormatStdout, FormatHTML}

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid output format %q (allowed: %s, %s)", s, FormatStdout, FormatHTML)
}
