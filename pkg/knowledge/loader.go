package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"CarelineGolang/internal/entity"

	"github.com/sirupsen/logrus"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
)

// corpusFiles maps a scraped-corpus file name to the document type and
// retrieval priority its records get.
var corpusFiles = map[string]struct{ docType, priority string }{
	"departments.json":   {"department", "high"},
	"doctors.json":       {"doctor", "high"},
	"faqs.json":          {"faq", "medium"},
	"services.json":      {"service", "high"},
	"dummy_dialogs.json": {"dialog", "medium"},
}

// Loader ingests scraped hospital content into the vector store.
type Loader struct {
	store IKnowledgeStore
	log   *logrus.Logger
}

func NewLoader(store IKnowledgeStore, log *logrus.Logger) *Loader {
	return &Loader{store: store, log: log}
}

// LoadDir ingests every known corpus file found under dir. Returns the
// number of chunks indexed.
func (l *Loader) LoadDir(ctx context.Context, dir string) (int, error) {
	indexed := 0
	for name, meta := range corpusFiles {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return indexed, fmt.Errorf("read %s: %w", name, err)
		}

		n, err := l.LoadJSON(ctx, name, raw, meta.docType, meta.priority)
		if err != nil {
			return indexed, fmt.Errorf("ingest %s: %w", name, err)
		}
		indexed += n

		l.log.WithFields(logrus.Fields{
			"file":   name,
			"chunks": n,
		}).Info("Loaded knowledge file")
	}
	return indexed, nil
}

// LoadJSON ingests one corpus file: a JSON array of flat records. Each
// record is flattened to "key: value" lines and chunked.
func (l *Loader) LoadJSON(ctx context.Context, source string, raw []byte, docType, priority string) (int, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, err
	}

	indexed := 0
	for i, record := range records {
		text := flattenRecord(record)
		if text == "" {
			continue
		}

		for j, chunk := range splitChunks(text, chunkSize, chunkOverlap) {
			doc := entity.KnowledgeDocument{
				ID:       fmt.Sprintf("%s-%d-%d", source, i, j),
				Content:  chunk,
				Type:     docType,
				Priority: priority,
				Metadata: map[string]string{"source": source},
			}
			if err := l.store.Upsert(ctx, doc); err != nil {
				return indexed, err
			}
			indexed++
		}
	}
	return indexed, nil
}

func flattenRecord(record map[string]interface{}) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		switch v := record[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", k, strings.TrimSpace(v)))
			}
		case []interface{}:
			var items []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					items = append(items, s)
				}
			}
			if len(items) > 0 {
				lines = append(lines, fmt.Sprintf("%s: %s", k, strings.Join(items, ", ")))
			}
		case float64:
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

// splitChunks breaks text into word-boundary chunks of roughly size runes
// with the given overlap.
func splitChunks(text string, size, overlap int) []string {
	if len(text) <= size {
		return []string{text}
	}

	words := strings.Fields(text)
	var chunks []string
	var current []string
	currentLen := 0

	for _, w := range words {
		current = append(current, w)
		currentLen += len(w) + 1
		if currentLen >= size {
			chunks = append(chunks, strings.Join(current, " "))

			// Carry the tail forward for overlap.
			var tail []string
			tailLen := 0
			for i := len(current) - 1; i >= 0 && tailLen < overlap; i-- {
				tail = append([]string{current[i]}, tail...)
				tailLen += len(current[i]) + 1
			}
			current = tail
			currentLen = tailLen
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
