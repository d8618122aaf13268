package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func parseOutputFormat(v string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(v)); f {
	case "", outputJSON:
		return outputJSON, nil
	case outputYAML, "yml":
		return outputYAML, nil
	default:
		return "", withCode(exitUsage, fmt.Errorf("invalid --output %q (want json or yaml)", v))
	}
}

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitRemote, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

func writeYAMLDoc(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return withCode(exitRemote, fmt.Errorf("yaml encode: %w", err))
	}
	return enc.Close()
}

func (a *app) write(v any) error {
	if a.format == outputYAML {
		return writeYAMLDoc(a.out, v)
	}
	return writeJSONLine(a.out, v)
}
