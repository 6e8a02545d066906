package semantic

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gitintel/gitintel-go/internal/models"
)

// ContentFetcher returns the file content on the target and source sides of
// a pending merge.
type ContentFetcher func(ctx context.Context, filePath string) (target, source string, err error)

// ChangeSimilarity scores how semantically close the two sides of a change
// are by embedding both versions of the file and taking their cosine
// similarity. High similarity means both branches edit the same kind of
// code, which raises conflict likelihood.
type ChangeSimilarity struct {
	embedder Embedder
	fetch    ContentFetcher
	logger   *logrus.Logger
}

func NewChangeSimilarity(embedder Embedder, fetch ContentFetcher, logger *logrus.Logger) *ChangeSimilarity {
	return &ChangeSimilarity{embedder: embedder, fetch: fetch, logger: logger}
}

// Similarity implements the feature extractor's similarity contract.
func (s *ChangeSimilarity) Similarity(ctx context.Context, filePath string, _, _ models.FileChangeSummary) (float64, error) {
	targetContent, sourceContent, err := s.fetch(ctx, filePath)
	if err != nil {
		return 0, err
	}

	targetVec, err := s.embedder.Embed(ctx, targetContent)
	if err != nil {
		return 0, err
	}
	sourceVec, err := s.embedder.Embed(ctx, sourceContent)
	if err != nil {
		return 0, err
	}

	sim := Cosine(targetVec, sourceVec)
	s.logger.WithFields(logrus.Fields{
		"file":       filePath,
		"similarity": sim,
		"model":      s.embedder.Model(),
	}).Debug("semantic similarity computed")
	return sim, nil
}
