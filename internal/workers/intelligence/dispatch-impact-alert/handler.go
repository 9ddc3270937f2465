// internal/workers/intelligence/dispatch-impact-alert/handler.go
package dispatchimpactalert

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"intelligence-workers/internal/common/camunda"
	"intelligence-workers/internal/common/config"
	apperrors "intelligence-workers/internal/common/errors"
	httpclient "intelligence-workers/internal/common/http"
	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/metrics"
	"intelligence-workers/internal/common/observability"
	"intelligence-workers/internal/intelligence"
	"intelligence-workers/internal/personalization"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const TaskType = "dispatch-impact-alert"

// SecretHeader authenticates pushes to the live application.
const SecretHeader = "x-evidly-intelligence-secret"

const maxSMSLength = 160

// EmailSender is implemented by aws.EmailSender.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, text, html string) (string, error)
}

// SMSSender is implemented by aws.SMSSender.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// WebhookPoster is implemented by http.Client.
type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (int, error)
}

type Handler struct {
	config     *Config
	resolver   *intelligence.Resolver
	email      EmailSender
	sms        SMSSender
	webhook    WebhookPoster
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Resolver      *intelligence.Resolver
	Email         EmailSender
	SMS           SMSSender
	Webhook       WebhookPoster
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
		resolver:   opts.Resolver,
		email:      opts.Email,
		sms:        opts.SMS,
		webhook:    opts.Webhook,
		obs:        opts.Observability,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
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
		attribute.String("notification.id", output.NotificationID),
		attribute.StringSlice("notification.channels", output.Channels),
	)
	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

// Execute fans an insight out to the channels it qualifies for. Critical or
// immediate insights go to email and SMS; otherwise email only when the
// personalized relevance reaches the threshold. The webhook fires for every
// insight tied to an organization.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	insight, err := h.resolver.Insight(ctx, input.Insight, input.InsightID)
	if err != nil {
		return nil, err
	}

	critical := insight.ImpactLevel == personalization.ImpactCritical || insight.Urgency == personalization.UrgencyImmediate
	relevance := 0.0
	if input.PersonalizedImpact != nil {
		relevance = input.PersonalizedImpact.RelevanceScore
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusSkipped,
		Channels:       []string{},
		Critical:       critical,
	}

	if (critical || relevance >= h.config.RelevanceThreshold) && h.config.EmailEnabled && h.email != nil && len(input.EmailRecipients) > 0 {
		subject, body := composeEmail(insight, input.PersonalizedImpact, critical)
		if _, err := h.email.Send(ctx, input.EmailRecipients, subject, body, ""); err != nil {
			metrics.AlertsDispatched.WithLabelValues(ChannelEmail, "failed").Inc()
			return nil, h.partialFailure(apperrors.NewNotificationSendFailedError(ChannelEmail, err), out.Channels)
		}
		metrics.AlertsDispatched.WithLabelValues(ChannelEmail, "sent").Inc()
		out.Channels = append(out.Channels, ChannelEmail)
	}

	if critical && h.config.SMSEnabled && h.sms != nil && len(input.SMSRecipients) > 0 {
		msg := composeSMS(insight)
		for i, phone := range input.SMSRecipients {
			if _, err := h.sms.Send(ctx, phone, msg); err != nil {
				metrics.AlertsDispatched.WithLabelValues(ChannelSMS, "failed").Inc()
				delivered := out.Channels
				if i > 0 {
					delivered = append(delivered, ChannelSMS)
				}
				return nil, h.partialFailure(apperrors.NewNotificationSendFailedError(ChannelSMS, err), delivered)
			}
		}
		metrics.AlertsDispatched.WithLabelValues(ChannelSMS, "sent").Inc()
		out.Channels = append(out.Channels, ChannelSMS)
	}

	if h.config.WebhookURL != "" && h.webhook != nil && input.OrganizationID != "" {
		if stdErr := h.pushWebhook(ctx, out.NotificationID, input, insight); stdErr != nil {
			metrics.AlertsDispatched.WithLabelValues(ChannelWebhook, "failed").Inc()
			return nil, h.partialFailure(stdErr, out.Channels)
		}
		metrics.AlertsDispatched.WithLabelValues(ChannelWebhook, "sent").Inc()
		out.Channels = append(out.Channels, ChannelWebhook)
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}
	out.SentAt = h.now().UTC()

	h.logger.Info("impact alert dispatched", map[string]interface{}{
		"notificationId": out.NotificationID,
		"insightId":      insight.ID,
		"critical":       critical,
		"relevance":      relevance,
		"channels":       out.Channels,
	})
	return out, nil
}

// partialFailure marks err permanent once any channel has already delivered,
// since a job retry would resend to those recipients.
func (h *Handler) partialFailure(err *apperrors.StandardError, delivered []string) error {
	if len(delivered) == 0 {
		return err
	}
	err.Retryable = false
	if err.Metadata == nil {
		err.Metadata = map[string]interface{}{}
	}
	err.Metadata["deliveredChannels"] = append([]string(nil), delivered...)
	h.logger.Warn("alert partially delivered", map[string]interface{}{
		"delivered": delivered,
		"error":     err.Details,
	})
	return err
}

func (h *Handler) pushWebhook(ctx context.Context, notificationID string, input *Input, insight *personalization.Insight) *apperrors.StandardError {
	payload := WebhookPayload{
		Event:            "new_insight",
		ClientLiveOrgID:  input.OrganizationID,
		NotificationID:   notificationID,
		InsightID:        insight.ID,
		Category:         insight.Category,
		Headline:         headlineOf(insight),
		Summary:          insight.Summary,
		ImpactLevel:      string(insight.ImpactLevel),
		Urgency:          string(insight.Urgency),
		ConfidenceScore:  insight.ConfidenceScore,
		AffectedCounties: nonNil(insight.AffectedCounties),
		ActionItems:      nonNil(insight.ActionItems),
	}
	if input.PersonalizedImpact != nil {
		score := input.PersonalizedImpact.RelevanceScore
		payload.RelevanceScore = &score
	}

	headers := map[string]string{}
	if h.config.WebhookSecret != "" {
		headers[SecretHeader] = h.config.WebhookSecret
	}

	if _, err := h.webhook.PostJSON(ctx, h.config.WebhookURL, headers, payload); err != nil {
		stdErr := apperrors.NewWebhookDeliveryFailedError(err.Error())
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && !statusErr.Retryable() {
			stdErr.Retryable = false
		}
		return stdErr
	}
	return nil
}

func headlineOf(insight *personalization.Insight) string {
	switch {
	case insight.Headline != "":
		return insight.Headline
	case insight.Title != "":
		return insight.Title
	}
	return "Intelligence Alert"
}

func composeEmail(insight *personalization.Insight, impact *personalization.PersonalizedImpact, critical bool) (string, string) {
	headline := headlineOf(insight)
	subject := "Intelligence Alert: " + headline
	if critical {
		subject = "\U0001F6A8 Critical Intelligence Alert: " + headline
	}

	actions := insight.ActionItems
	var b strings.Builder
	b.WriteString(headline)
	if impact != nil {
		if impact.BusinessContext != "" {
			b.WriteString("\n\n")
			b.WriteString(impact.BusinessContext)
		}
		if len(impact.PersonalizedActions) > 0 {
			actions = impact.PersonalizedActions
		}
	}
	if len(actions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(actions, "\n"))
	}
	return subject, b.String()
}

func composeSMS(insight *personalization.Insight) string {
	msg := fmt.Sprintf("Critical compliance alert: %s", headlineOf(insight))
	if r := []rune(msg); len(r) > maxSMSLength {
		msg = string(r[:maxSMSLength-3]) + "..."
	}
	return msg
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
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
