// Package proxies reads proxy lists in the common "host:port" and
// "host:port:user:pass" line formats.
package proxies

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Load reads and parses the proxy file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied proxy list.
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// Parse returns one proxy URL per non-empty line. Lines starting with '#'
// are skipped.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		proxy, err := parseLine(raw)
		if err != nil {
			return nil, fmt.Errorf("proxy file line %d: %w", line, err)
		}
		out = append(out, proxy)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return out, nil
}

func parseLine(raw string) (string, error) {
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2:
		return "http://" + parts[0] + ":" + parts[1], nil
	case 4:
		u := url.URL{
			Scheme: "http",
			User:   url.UserPassword(parts[2], parts[3]),
			Host:   parts[0] + ":" + parts[1],
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("expected host:port or host:port:user:pass, got %q", raw)
	}
}
