package kbService

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CarelineGolang/internal/api/kb"
	"CarelineGolang/internal/entity"
	"CarelineGolang/pkg/knowledge"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeClassifier struct {
	defs       []entity.IntentDefinition
	patternErr error
	added      []string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, history []entity.Turn) ([]entity.IntentResult, error) {
	return nil, nil
}

func (f *fakeClassifier) Definitions() []entity.IntentDefinition { return f.defs }

func (f *fakeClassifier) AddPattern(intentName, pattern string) error {
	if f.patternErr != nil {
		return f.patternErr
	}
	f.added = append(f.added, intentName+":"+pattern)
	return nil
}

func (f *fakeClassifier) CannedResponse(kind entity.IntentKind, seed uint64) string { return "" }

type fakeKnowledgeStore struct {
	docs int
}

func (f *fakeKnowledgeStore) Upsert(ctx context.Context, doc entity.KnowledgeDocument) error {
	f.docs++
	return nil
}

func (f *fakeKnowledgeStore) Query(ctx context.Context, query string, k int, filters map[string]string) ([]knowledge.SearchResult, error) {
	return nil, nil
}

func (f *fakeKnowledgeStore) Count() int { return f.docs }

type fakeS3 struct {
	files []string
	err   error
	dest  string
}

func (f *fakeS3) ListCorpusFiles(prefix string) ([]string, error) { return f.files, f.err }

func (f *fakeS3) DownloadCorpus(prefix, destDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.dest = destDir
	return f.files, nil
}

type kbFixture struct {
	service    IKbService
	classifier *fakeClassifier
	store      *fakeKnowledgeStore
	s3         *fakeS3
}

func newKbFixture(t *testing.T) *kbFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	fx := &kbFixture{
		classifier: &fakeClassifier{},
		store:      &fakeKnowledgeStore{},
		s3:         &fakeS3{},
	}
	fx.service = NewKbService(logger, fx.classifier, knowledge.NewLoader(fx.store, logger), fx.s3)
	return fx
}

func TestListIntents(t *testing.T) {
	fx := newKbFixture(t)
	fx.classifier.defs = []entity.IntentDefinition{
		{
			Name:      "appointment_booking",
			Patterns:  []string{"book an appointment"},
			Responses: []string{"Let's get you booked in."},
			UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{Name: "greeting", Patterns: []string{"hello"}},
	}

	resp, err := fx.service.ListIntents(context.Background())
	require.NoError(t, err)

	require.Len(t, resp.Intents, 2)
	assert.Equal(t, "appointment_booking", resp.Intents[0].Name)
	assert.Equal(t, []string{"book an appointment"}, resp.Intents[0].Patterns)
	assert.Equal(t, "greeting", resp.Intents[1].Name)
}

func TestAddPattern(t *testing.T) {
	fx := newKbFixture(t)

	err := fx.service.AddPattern(context.Background(), "greeting", "  good morning  ")
	require.NoError(t, err)

	require.Len(t, fx.classifier.added, 1)
	assert.Equal(t, "greeting:good morning", fx.classifier.added[0])
}

func TestAddPatternEmpty(t *testing.T) {
	fx := newKbFixture(t)

	err := fx.service.AddPattern(context.Background(), "greeting", "   ")
	assert.ErrorIs(t, err, kb.ErrEmptyPattern)
	assert.Empty(t, fx.classifier.added)
}

func TestAddPatternUnknownIntent(t *testing.T) {
	fx := newKbFixture(t)
	fx.classifier.patternErr = errors.New("no such intent")

	err := fx.service.AddPattern(context.Background(), "nonexistent", "some phrase")
	assert.ErrorIs(t, err, kb.ErrIntentNotFound)
}

func TestReindexLocalDir(t *testing.T) {
	fx := newKbFixture(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "departments.json"),
		[]byte(`[{"name": "Cardiology", "floor": 3}]`), 0o644))

	resp, err := fx.service.Reindex(context.Background(), kb.ReindexRequest{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Documents)
	assert.Equal(t, 1, fx.store.Count())
}

func TestReindexS3DownloadsSnapshot(t *testing.T) {
	fx := newKbFixture(t)

	// The downloaded snapshot directory is then loaded like a local one,
	// so the fake has to actually materialize a corpus file there.
	dest := filepath.Join(os.TempDir(), "careline-corpus")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	path := filepath.Join(dest, "faqs.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"question": "Visiting hours?", "answer": "8am to 8pm daily."}]`), 0o644))
	t.Cleanup(func() { os.Remove(path) })
	fx.s3.files = []string{path}

	resp, err := fx.service.Reindex(context.Background(), kb.ReindexRequest{Source: "s3", Prefix: "corpus/"})
	require.NoError(t, err)

	assert.Equal(t, dest, fx.s3.dest)
	assert.Equal(t, "ok", resp.Status)
	assert.GreaterOrEqual(t, resp.Documents, 1)
}

func TestReindexS3Failure(t *testing.T) {
	fx := newKbFixture(t)
	fx.s3.err = errors.New("bucket unreachable")

	_, err := fx.service.Reindex(context.Background(), kb.ReindexRequest{Source: "s3"})
	assert.ErrorIs(t, err, kb.ErrCorpusUnavailable)
}

func TestReindexWithoutS3Client(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store := &fakeKnowledgeStore{}
	service := NewKbService(logger, &fakeClassifier{}, knowledge.NewLoader(store, logger), nil)

	_, err := service.Reindex(context.Background(), kb.ReindexRequest{Source: "s3"})
	assert.ErrorIs(t, err, kb.ErrCorpusUnavailable)
}
