package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/domain/repositories"
)

const documentVersion = 1

// document is the persisted form. Unknown fields are ignored on load so older
// binaries keep reading documents written by newer ones.
type document struct {
	Version      int                        `json:"version"`
	Repositories map[string][]documentEntry `json:"repositories"`
}

type documentEntry struct {
	Image string `json:"image"`
	Tag   string `json:"tag"`
}

type pairKey struct {
	image string
	tag   string
}

// JSONLedgerRepository implements repositories.LedgerRepository on a JSON file.
// Every mutation is flushed with a write-to-temp-then-rename, so a crash never
// leaves a half-written document behind.
type JSONLedgerRepository struct {
	path    string
	mu      sync.RWMutex
	records map[string]map[pairKey]struct{}
}

var _ repositories.LedgerRepository = (*JSONLedgerRepository)(nil)

// NewJSONLedgerRepository creates a ledger backed by the file at path. Call Load before use.
func NewJSONLedgerRepository(path string) repositories.LedgerRepository {
	return &JSONLedgerRepository{
		path:    path,
		records: make(map[string]map[pairKey]struct{}),
	}
}

// Load reads the document. A missing or empty file is an empty ledger.
func (it *JSONLedgerRepository) Load() error {
	data, err := os.ReadFile(it.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to read ledger %q: %w", entities.ErrConfiguration, it.path, err)
	}

	records := make(map[string]map[pairKey]struct{})
	if len(strings.TrimSpace(string(data))) > 0 {
		var doc document
		if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
			return fmt.Errorf("%w: malformed ledger %q: %w", entities.ErrConfiguration, it.path, unmarshalErr)
		}
		for repoID, entries := range doc.Repositories {
			for _, entry := range entries {
				addPair(records, repoID, pairKey{image: entry.Image, tag: entry.Tag})
			}
		}
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	it.records = records
	return nil
}

func (it *JSONLedgerRepository) Contains(repoID string, image entities.ImageReference) bool {
	key := keyOf(repoID, image)

	it.mu.RLock()
	defer it.mu.RUnlock()
	_, found := it.records[repoID][key]
	return found
}

func (it *JSONLedgerRepository) Record(repoID string, image entities.ImageReference) error {
	key := keyOf(repoID, image)

	it.mu.Lock()
	defer it.mu.Unlock()
	if _, found := it.records[repoID][key]; found {
		return nil
	}
	addPair(it.records, repoID, key)
	return it.flushLocked()
}

func (it *JSONLedgerRepository) Forget(repoID string) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if _, found := it.records[repoID]; !found {
		return nil
	}
	delete(it.records, repoID)
	return it.flushLocked()
}

func (it *JSONLedgerRepository) Entries() []entities.LedgerEntry {
	it.mu.RLock()
	defer it.mu.RUnlock()

	repoIDs := lo.Keys(it.records)
	slices.Sort(repoIDs)

	var entries []entities.LedgerEntry
	for _, repoID := range repoIDs {
		for _, key := range sortedPairs(it.records[repoID]) {
			entries = append(entries, entities.LedgerEntry{Repository: repoID, Image: key.image, Tag: key.tag})
		}
	}
	return entries
}

func (it *JSONLedgerRepository) Flush() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.flushLocked()
}

func (it *JSONLedgerRepository) flushLocked() error {
	doc := document{
		Version:      documentVersion,
		Repositories: make(map[string][]documentEntry, len(it.records)),
	}
	for repoID, pairs := range it.records {
		doc.Repositories[repoID] = lo.Map(sortedPairs(pairs), func(key pairKey, _ int) documentEntry {
			return documentEntry{Image: key.image, Tag: key.tag}
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	dir := filepath.Dir(it.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(it.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(append(data, '\n')); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close ledger: %w", closeErr)
	}
	if renameErr := os.Rename(tmpName, it.path); renameErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger %q: %w", it.path, renameErr)
	}

	return nil
}

func keyOf(repoID string, image entities.ImageReference) pairKey {
	entry := entities.NewLedgerEntry(repoID, image)
	return pairKey{image: entry.Image, tag: entry.Tag}
}

func addPair(records map[string]map[pairKey]struct{}, repoID string, key pairKey) {
	pairs, found := records[repoID]
	if !found {
		pairs = make(map[pairKey]struct{})
		records[repoID] = pairs
	}
	pairs[key] = struct{}{}
}

func sortedPairs(pairs map[pairKey]struct{}) []pairKey {
	keys := lo.Keys(pairs)
	slices.SortFunc(keys, func(a, b pairKey) int {
		if a.image != b.image {
			return strings.Compare(a.image, b.image)
		}
		return strings.Compare(a.tag, b.tag)
	})
	return keys
}
