// Package selftest exercises a blob-store session with pseudo-random
// operations and verifies every result against an in-memory reference
// filesystem. The CLI self-test command runs it against the emulator; the
// test suites reuse the generator and reference for crash-consistency checks.
package selftest

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
)

// ToyFilesystem is the reference the store is checked against: a plain
// name-to-payload map with none of the store's failure modes.
type ToyFilesystem struct {
	files map[string][]byte
}

// NewToyFilesystem creates an empty reference filesystem.
func NewToyFilesystem() *ToyFilesystem {
	return &ToyFilesystem{files: make(map[string][]byte)}
}

// Store stores or replaces a file.
func (t *ToyFilesystem) Store(name string, payload []byte) {
	t.files[name] = append([]byte(nil), payload...)
}

// Fetch returns a file's payload and whether it exists.
func (t *ToyFilesystem) Fetch(name string) ([]byte, bool) {
	payload, ok := t.files[name]
	return payload, ok
}

// Remove deletes a file, reporting whether it existed.
func (t *ToyFilesystem) Remove(name string) bool {
	if _, ok := t.files[name]; !ok {
		return false
	}
	delete(t.files, name)
	return true
}

// Names returns the stored names, sorted.
func (t *ToyFilesystem) Names() []string {
	names := make([]string, 0, len(t.files))
	for name := range t.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored files.
func (t *ToyFilesystem) Len() int { return len(t.files) }

// OpType enumerates the generated operation kinds.
type OpType int

const (
	OpStore OpType = iota
	OpFetch
	OpRemove
	OpList
)

// String returns the operation kind name.
func (t OpType) String() string {
	switch t {
	case OpStore:
		return "store"
	case OpFetch:
		return "fetch"
	case OpRemove:
		return "remove"
	default:
		return "list"
	}
}

// Operation is one generated test step.
type Operation struct {
	Type      OpType
	Name      string
	Payload   []byte
	Encrypted bool
}

func (op Operation) String() string {
	if op.Type == OpStore {
		enc := ""
		if op.Encrypted {
			enc = " [encrypted]"
		}
		return fmt.Sprintf("STORE(%q, %d bytes%s)", op.Name, len(op.Payload), enc)
	}
	return fmt.Sprintf("%s(%q)", op.Type, op.Name)
}

// namePool seeds blob names; collisions get a numeric suffix.
var namePool = []string{
	"config", "secret", "backup", "key", "cert", "data",
	"log", "cache", "index", "metadata", "state", "info",
	"settings", "profile", "session", "token", "auth", "creds",
	"database", "schema", "archive", "snapshot", "checkpoint",
}

// Generator produces pseudo-random operation sequences from a fixed seed, so
// runs are reproducible. It tracks which names it believes exist to weight
// operation choice, independent of the store's actual state.
type Generator struct {
	rng        *rand.Rand
	maxFiles   int
	maxPayload int
	encRatio   float64
	existing   map[string]struct{}
}

// NewGenerator creates a generator. maxFiles bounds how many files the
// sequence keeps alive at once; maxPayload bounds payload sizes; encRatio is
// the fraction of stores that request encryption.
func NewGenerator(seed int64, maxFiles, maxPayload int, encRatio float64) *Generator {
	return &Generator{
		rng:        rand.New(rand.NewSource(seed)),
		maxFiles:   maxFiles,
		maxPayload: maxPayload,
		encRatio:   encRatio,
		existing:   make(map[string]struct{}),
	}
}

// Next generates the next operation.
func (g *Generator) Next() Operation {
	var opType OpType
	switch {
	case len(g.existing) == 0:
		opType = OpStore
	case len(g.existing) >= g.maxFiles:
		opType = g.pick(20, 40, 30, 10)
	default:
		opType = g.pick(40, 35, 15, 10)
	}

	switch opType {
	case OpStore:
		var name string
		if len(g.existing) >= g.maxFiles || (len(g.existing) > 0 && g.rng.Float64() < 0.3) {
			name = g.pickExisting()
		} else {
			name = namePool[g.rng.Intn(len(namePool))]
			if _, ok := g.existing[name]; ok {
				name = fmt.Sprintf("%s-%d", name, 1000+g.rng.Intn(9000))
			}
		}
		g.existing[name] = struct{}{}
		return Operation{
			Type:      OpStore,
			Name:      name,
			Payload:   g.payload(),
			Encrypted: g.rng.Float64() < g.encRatio,
		}

	case OpFetch, OpRemove:
		name := g.pickExisting()
		if g.rng.Float64() < 0.1 {
			name = fmt.Sprintf("nonexistent-%d", 1000+g.rng.Intn(9000))
		}
		if opType == OpRemove {
			delete(g.existing, name)
		}
		return Operation{Type: opType, Name: name}

	default:
		return Operation{Type: OpList}
	}
}

// pick draws an operation kind with the given weights.
func (g *Generator) pick(store, fetch, remove, list int) OpType {
	n := g.rng.Intn(store + fetch + remove + list)
	switch {
	case n < store:
		return OpStore
	case n < store+fetch:
		return OpFetch
	case n < store+fetch+remove:
		return OpRemove
	default:
		return OpList
	}
}

// pickExisting returns a random tracked name, or a fresh one when none exist.
func (g *Generator) pickExisting() string {
	if len(g.existing) == 0 {
		return namePool[g.rng.Intn(len(namePool))]
	}
	names := make([]string, 0, len(g.existing))
	for name := range g.existing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[g.rng.Intn(len(names))]
}

// payload draws a random payload: mostly small, some medium, a few of any
// size up to the configured maximum.
func (g *Generator) payload() []byte {
	var size int
	switch r := g.rng.Float64(); {
	case r < 0.7:
		size = 1 + g.rng.Intn(1024)
	case r < 0.95:
		size = 1024 + g.rng.Intn(4*1024)
	default:
		size = 1 + g.rng.Intn(g.maxPayload)
	}
	if size > g.maxPayload {
		size = g.maxPayload
	}
	payload := make([]byte, size)
	g.rng.Read(payload)
	return payload
}

// Equal reports whether two payloads match.
func Equal(a, b []byte) bool { return bytes.Equal(a, b) }
