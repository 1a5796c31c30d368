package kbService

import (
	"CarelineGolang/internal/api/kb"
	"CarelineGolang/pkg/knowledge"
	"CarelineGolang/pkg/nlp"
	"CarelineGolang/pkg/s3"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IKbService interface {
	ListIntents(ctx context.Context) (kb.IntentListResponse, error)
	AddPattern(ctx context.Context, intentName, pattern string) error
	Reindex(ctx context.Context, req kb.ReindexRequest) (kb.ReindexResponse, error)
}

type kbService struct {
	log        *logrus.Logger
	classifier nlp.IClassifier
	loader     *knowledge.Loader
	s3Client   s3.ItfS3
}

func NewKbService(
	log *logrus.Logger,
	classifier nlp.IClassifier,
	loader *knowledge.Loader,
	s3Client s3.ItfS3,
) IKbService {
	return &kbService{
		log:        log,
		classifier: classifier,
		loader:     loader,
		s3Client:   s3Client,
	}
}
