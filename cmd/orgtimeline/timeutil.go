package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

func parseDateFlag(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	d, err := version.ParseDate(v)
	if err != nil {
		return time.Time{}, withCode(exitUsage, fmt.Errorf("invalid --%s: %w", name, err))
	}
	return d, nil
}

func parseRequiredDateFlag(name, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, withCode(exitUsage, fmt.Errorf("--%s is required", name))
	}
	return parseDateFlag(name, v)
}
