package predict

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gitintel/gitintel-go/internal/models"
)

// batchWorkers bounds concurrent per-file predictions. Each one may spawn
// git subprocesses, so this works together with the repository rate limiter.
const batchWorkers = 8

// BatchInput is one file's worth of prediction input.
type BatchInput struct {
	FilePath string
	Pair     models.FileChangePair
	RepoCtx  models.RepoContext
}

// PredictBatch scores every file concurrently and returns the results
// sorted by descending probability. The batch is all-settled: a file whose
// prediction fails outright is logged and dropped, never fatal, and a
// persistence failure only costs the learning record, not the prediction.
func (p *Predictor) PredictBatch(ctx context.Context, inputs []BatchInput) []*models.ConflictPrediction {
	var (
		mu      sync.Mutex
		results []*models.ConflictPrediction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)

	for _, in := range inputs {
		in := in
		g.Go(func() error {
			pred, err := p.predictSettled(gctx, in)
			if pred == nil {
				p.logger.WithFields(logrus.Fields{
					"file":  in.FilePath,
					"error": err,
				}).Warn("prediction failed, file excluded from batch")
				return nil
			}
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"file":  in.FilePath,
					"error": err,
				}).Debug("prediction stored without learning record")
			}
			mu.Lock()
			results = append(results, pred)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].ConflictProbability != results[j].ConflictProbability {
			return results[i].ConflictProbability > results[j].ConflictProbability
		}
		return results[i].FilePath < results[j].FilePath
	})
	return results
}

// predictSettled converts a panic in a single file's pipeline into an
// error so the rest of the batch keeps going.
func (p *Predictor) predictSettled(ctx context.Context, in BatchInput) (pred *models.ConflictPrediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			pred = nil
			err = fmt.Errorf("prediction panic: %v", r)
		}
	}()
	return p.Predict(ctx, in.FilePath, in.Pair, in.RepoCtx)
}
