// internal/workers/intelligence/personalize-insights/handler.go
package personalizeinsights

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"intelligence-workers/internal/common/camunda"
	"intelligence-workers/internal/common/config"
	apperrors "intelligence-workers/internal/common/errors"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/metrics"
	"intelligence-workers/internal/common/observability"
	"intelligence-workers/internal/intelligence"
	"intelligence-workers/internal/personalization"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const TaskType = "personalize-insights"

type Handler struct {
	config     *Config
	engine     *personalization.Engine
	resolver   *intelligence.Resolver
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Engine        *personalization.Engine
	Resolver      *intelligence.Resolver
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = NewConfig(opts.AppConfig)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:     cfg,
		engine:     opts.Engine,
		resolver:   opts.Resolver,
		obs:        opts.Observability,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, apperrors.NewInsightParseError(err), start)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.failJob(ctx, client, job, err, start)
		return
	}

	span.SetAttributes(
		attribute.Int("batch.processed", output.Processed),
		attribute.Int("batch.skipped", output.Skipped),
	)
	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

// Execute personalizes a batch of insights for one profile. A failure on one
// insight never fails the batch; it is reported as skipped.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	useFixture := h.config.FixtureMode
	if input.UseFixture != nil {
		useFixture = *input.UseFixture
	}

	if n := len(input.Insights) + len(input.InsightIDs); n > h.config.MaxInsights {
		return nil, apperrors.NewInsightParseError(fmt.Errorf("batch of %d insights exceeds limit %d", n, h.config.MaxInsights))
	}

	insights, err := h.resolver.Insights(ctx, input.Insights, input.InsightIDs)
	if err != nil {
		return nil, err
	}
	profile, err := h.resolver.Profile(ctx, input.Profile, input.OrganizationID, useFixture)
	if err != nil {
		return nil, err
	}

	results := h.engine.PersonalizeBatch(ctx, insights, profile, useFixture)

	out := &Output{
		OrganizationID: profile.ID,
		Results:        results,
		Processed:      len(results),
	}
	for _, in := range insights {
		if _, ok := results[in.ID]; !ok {
			out.SkippedIDs = append(out.SkippedIDs, in.ID)
		}
	}
	out.Skipped = len(out.SkippedIDs)
	out.TopInsightID = topInsight(results)

	for _, impact := range results {
		h.obs.RecordRelevance(ctx, string(profile.Segment), impact.RelevanceScore)
	}
	h.logger.Info("batch personalized", map[string]interface{}{
		"organizationId": profile.ID,
		"processed":      out.Processed,
		"skipped":        out.Skipped,
	})

	return out, nil
}

// topInsight picks the most relevant result, breaking ties by id.
func topInsight(results map[string]*personalization.PersonalizedImpact) string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	top := ""
	best := -1.0
	for _, id := range ids {
		if s := results[id].RelevanceScore; s > best {
			top, best = id, s
		}
	}
	return top
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}
