// Package orchestrator fans a set of flow files out across the flow
// executor: resolving globs, deriving deterministic session names, and
// running flows sequentially or up to N in parallel.
package orchestrator

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"
)

const defaultFlowGlob = ".enbuflow/*.enbu.yaml"

// ResolveFiles expands patterns (literal paths or globs) into a
// deduplicated, stably ordered list of absolute flow file paths. An empty
// patterns list falls back to the default .enbuflow/*.enbu.yaml glob under
// the current directory.
func ResolveFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{defaultFlowGlob}
	}

	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				matches = []string{pattern}
			}
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			out = append(out, abs)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SessionName derives enbu's deterministic per-file session identifier:
// enbu-<basename without .enbu.yaml>-<first 6 hex chars of blake3(absPath)>.
// The same absolute path always yields the same name; distinct paths yield
// distinct 6-hex suffixes except with collision probability ~2⁻²⁴.
func SessionName(absPath string) string {
	base := strings.TrimSuffix(filepath.Base(absPath), ".enbu.yaml")
	h := blake3.New()
	h.Write([]byte(absPath))
	sum := h.Sum(nil)
	return fmt.Sprintf("enbu-%s-%s", base, hex.EncodeToString(sum)[:6])
}
