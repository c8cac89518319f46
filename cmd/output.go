package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usgs/sbgo/sciencebase"
)

// printResult writes v to w as indented JSON or YAML
func printResult(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

// parseAssignments turns key=value pairs into item fields. Values that parse
// as JSON keep their type; anything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", pair)
		}

		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			fields[key] = decoded
		} else {
			fields[key] = value
		}
	}
	return fields, nil
}

// parseSource maps a command line argument to an upload source: "-" is
// stdin, anything with a scheme is remote, the rest are local paths
func parseSource(arg string, stdin io.Reader) (sciencebase.UploadSource, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return sciencebase.Buffer{Data: data}, nil
	case strings.Contains(arg, "://"):
		return sciencebase.RemoteURL{URL: arg}, nil
	default:
		return sciencebase.LocalFile{Path: arg}, nil
	}
}

// readJSONArg reads a JSON document from a file path, or stdin for "-"
func readJSONArg(arg string, out any) error {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", arg, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", arg, err)
	}
	return nil
}
