// Package atoms implements the lazy, process-cached loader of
// newline-delimited text files under a theme's atoms/ tree, per
// spec.md §4.2. Grounded on the teacher's internal/cache.go
// load-once-cache-forever pattern.
package atoms

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// Store lazily loads and caches atom files rooted at a theme's atoms
// directory. The pipeline is single-threaded per spec.md §5, so the
// mutex here only guards against defensive reentrancy, not genuine
// concurrent access.
type Store struct {
	root  string
	mu    sync.Mutex
	cache map[string][]string
}

// New returns a Store rooted at atomsRoot (a theme's resolved
// atoms_root directory).
func New(atomsRoot string) *Store {
	return &Store{root: atomsRoot, cache: make(map[string][]string)}
}

// Lookup reads atoms/{name}.txt relative to the store's root on first
// call and caches the result for the process's lifetime. Blank lines
// and lines whose first non-whitespace character is '#' are discarded;
// line order is preserved.
func (s *Store) Lookup(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}

	path := filepath.Join(s.root, filepath.FromSlash(name)+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, &darkwallerrors.AtomMissing{Name: name, Path: path}
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read atom file %s: %w", path, err)
	}

	s.cache[name] = lines
	return lines, nil
}

// Select picks uniformly at random from the non-empty candidate list
// for name using rng.
func (s *Store) Select(name string, rng *rand.Rand) (string, error) {
	candidates, err := s.Lookup(name)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", &darkwallerrors.AtomEmpty{Name: name}
	}
	return candidates[rng.IntN(len(candidates))], nil
}
