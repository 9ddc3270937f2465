// internal/workers/intelligence/personalize-insight/handler.go
package personalizeinsight

import (
	"context"
	"encoding/json"
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

const TaskType = "personalize-insight"

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
		attribute.String("insight.id", output.InsightID),
		attribute.Float64("relevance.score", output.RelevanceScore),
	)
	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

// Execute personalizes one insight for one profile.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	useFixture := h.config.FixtureMode
	if input.UseFixture != nil {
		useFixture = *input.UseFixture
	}

	insight, err := h.resolver.Insight(ctx, input.Insight, input.InsightID)
	if err != nil {
		return nil, err
	}
	profile, err := h.resolver.Profile(ctx, input.Profile, input.OrganizationID, useFixture)
	if err != nil {
		return nil, err
	}

	res := h.engine.Personalize(ctx, insight, profile, useFixture)
	if res.Impact == nil {
		return nil, apperrors.NewNoUsableSignalError(insight.ID)
	}

	h.obs.RecordRelevance(ctx, string(profile.Segment), res.Impact.RelevanceScore)
	h.logger.Info("insight personalized", map[string]interface{}{
		"insightId":      insight.ID,
		"organizationId": profile.ID,
		"relevance":      res.Impact.RelevanceScore,
		"outcome":        string(res.Outcome),
	})

	return &Output{
		InsightID:          insight.ID,
		OrganizationID:     profile.ID,
		PersonalizedImpact: res.Impact,
		RelevanceScore:     res.Impact.RelevanceScore,
		Cached:             res.Outcome == personalization.OutcomeCached,
		Fixture:            res.Outcome == personalization.OutcomeFixture,
	}, nil
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
