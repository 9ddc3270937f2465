// internal/workers/intelligence/dispatch-impact-alert/models.go
package dispatchimpactalert

import (
	"encoding/json"
	"time"

	"intelligence-workers/internal/personalization"
)

// Notification channels.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelWebhook = "webhook"
)

const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

type Input struct {
	Insight            json.RawMessage                     `json:"insight,omitempty"`
	InsightID          string                              `json:"insightId,omitempty"`
	OrganizationID     string                              `json:"organizationId,omitempty"`
	PersonalizedImpact *personalization.PersonalizedImpact `json:"personalizedImpact,omitempty"`
	EmailRecipients    []string                            `json:"emailRecipients,omitempty"`
	SMSRecipients      []string                            `json:"smsRecipients,omitempty"`
}

type Output struct {
	NotificationID string    `json:"notificationId"`
	Status         string    `json:"status"`
	Channels       []string  `json:"channels"`
	Critical       bool      `json:"critical"`
	SentAt         time.Time `json:"sentAt"`
}

// WebhookPayload is the new_insight event pushed to the live application.
type WebhookPayload struct {
	Event            string   `json:"event"`
	ClientLiveOrgID  string   `json:"client_live_org_id"`
	NotificationID   string   `json:"notification_id"`
	InsightID        string   `json:"insight_id"`
	Category         string   `json:"category,omitempty"`
	Headline         string   `json:"headline"`
	Summary          string   `json:"summary,omitempty"`
	ImpactLevel      string   `json:"impact_level"`
	Urgency          string   `json:"urgency,omitempty"`
	ConfidenceScore  float64  `json:"confidence_score"`
	AffectedCounties []string `json:"affected_counties"`
	ActionItems      []string `json:"action_items"`
	RelevanceScore   *float64 `json:"relevance_score,omitempty"`
}
