package resolve

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
)

const maxEnvLineSize = 1024 * 1024

// EnvVarMap maps variable names to values. Keys are unique; order is irrelevant.
type EnvVarMap map[string]string

// ParseEnvFile reads KEY=VALUE pairs from path. A missing or unreadable
// file yields an empty map.
func ParseEnvFile(path string) EnvVarMap {
	f, err := os.Open(path)
	if err != nil {
		return EnvVarMap{}
	}
	defer f.Close()

	return ParseEnv(f)
}

// ParseEnv parses env-file content line by line. Blank lines and lines
// starting with '#' are skipped, a line is split at its first '=' and both
// sides are trimmed. Lines without '=' or with an empty key are ignored.
// Later occurrences of a key overwrite earlier ones. There is no quoting,
// escaping or multi-line support. Lines longer than maxEnvLineSize are
// dropped and parsing continues with the next line.
func ParseEnv(r io.Reader) EnvVarMap {
	vars := EnvVarMap{}

	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	oversized := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			// a read error ends the file like EOF does
			break
		}
		if !oversized {
			if len(line)+len(chunk) > maxEnvLineSize {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}
		if !oversized {
			parseEnvLine(vars, string(line))
		}
		line = line[:0]
		oversized = false
	}

	return vars
}

func parseEnvLine(vars EnvVarMap, line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	vars[key] = strings.TrimSpace(value)
}

// Keys returns the map keys in sorted order
func (m EnvVarMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MergeEnv layers variable maps over a base environment in KEY=VALUE form.
// Later layers win on key collision. The result is sorted by key.
func MergeEnv(base []string, layers ...EnvVarMap) []string {
	merged := make(map[string]string, len(base))
	for _, kv := range base {
		key, value, ok := splitEnvEntry(kv)
		if !ok {
			continue
		}
		merged[key] = value
	}

	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}

	result := make([]string, 0, len(merged))
	for _, k := range EnvVarMap(merged).Keys() {
		result = append(result, k+"="+merged[k])
	}
	return result
}

// splitEnvEntry splits at the first '=' after the first byte, so Windows
// drive entries such as "=C:=C:\" keep their leading '=' in the key.
func splitEnvEntry(kv string) (key, value string, ok bool) {
	if kv == "" {
		return "", "", false
	}
	idx := strings.Index(kv[1:], "=")
	if idx < 0 {
		return "", "", false
	}
	idx++
	return kv[:idx], kv[idx+1:], true
}
