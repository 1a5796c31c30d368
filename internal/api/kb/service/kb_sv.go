package kbService

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"CarelineGolang/internal/api/kb"
	contextPkg "CarelineGolang/pkg/context"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const defaultCorpusDir = "./data/corpus"

func (s *kbService) ListIntents(ctx context.Context) (kb.IntentListResponse, error) {
	defs := s.classifier.Definitions()

	resp := kb.IntentListResponse{
		Intents: make([]kb.IntentResponse, 0, len(defs)),
	}
	for _, def := range defs {
		resp.Intents = append(resp.Intents, kb.IntentResponse{
			Name:      def.Name,
			Patterns:  def.Patterns,
			Responses: def.Responses,
			UpdatedAt: def.UpdatedAt,
		})
	}

	return resp, nil
}

func (s *kbService) AddPattern(ctx context.Context, intentName, pattern string) error {
	requestID := contextPkg.GetRequestID(ctx)

	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return kb.ErrEmptyPattern
	}

	if err := s.classifier.AddPattern(intentName, pattern); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"intent":     intentName,
			"error":      err.Error(),
		}).Warn("Failed to add intent pattern")
		return kb.ErrIntentNotFound
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"intent":     intentName,
		"pattern":    pattern,
	}).Info("Added intent pattern")

	return nil
}

// Reindex reloads the knowledge corpus into the vector store, either from a
// local directory or from a bucket snapshot produced by the scraper.
func (s *kbService) Reindex(ctx context.Context, req kb.ReindexRequest) (kb.ReindexResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	dir := req.Dir
	if dir == "" {
		dir = os.Getenv("KNOWLEDGE_DIR")
	}
	if dir == "" {
		dir = defaultCorpusDir
	}

	if req.Source == "s3" {
		if s.s3Client == nil {
			return kb.ReindexResponse{}, kb.ErrCorpusUnavailable
		}

		dest := filepath.Join(os.TempDir(), "careline-corpus")
		paths, err := s.s3Client.DownloadCorpus(req.Prefix, dest)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"prefix":     req.Prefix,
				"error":      err.Error(),
			}).Error("Failed to download corpus snapshot")
			return kb.ReindexResponse{}, fmt.Errorf("%w: %v", kb.ErrCorpusUnavailable, err)
		}

		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"files":      len(paths),
		}).Info("Downloaded corpus snapshot")

		dir = dest
	}

	count, err := s.loader.LoadDir(ctx, dir)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"dir":        dir,
			"error":      err.Error(),
		}).Error("Failed to reindex knowledge corpus")
		return kb.ReindexResponse{}, fmt.Errorf("%w: %v", kb.ErrCorpusUnavailable, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"dir":        dir,
		"documents":  count,
	}).Info("Reindexed knowledge corpus")

	return kb.ReindexResponse{
		Status:    "ok",
		Documents: count,
	}, nil
}
