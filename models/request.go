package models

// ExtractRequest is the payload for POST /api/v1/extract and POST /api/v1/jobs.
type ExtractRequest struct {
	// URL is the storefront page to extract from. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the whole run
	// (navigation + every item cycle). Default: 600. Max: server limit.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// ResponseMatch overrides the URL substring that identifies the
	// per-item detail response.
	ResponseMatch string `json:"response_match,omitempty"`

	// DescriptionFormat controls how the description field is normalized.
	// Allowed: "raw" (default), "text", "markdown".
	DescriptionFormat string `json:"description_format,omitempty" binding:"omitempty,oneof=raw text markdown"`

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth *bool `json:"stealth,omitempty"`

	// CDPURL connects to a caller-provided browser instead of the
	// server's configured execution environment.
	CDPURL string `json:"cdp_url,omitempty"`

	// MaxAge enables serving a cached result younger than this many
	// milliseconds. 0 disables the cache lookup.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL receives an "extraction.completed" event when an async
	// job finishes. Ignored by the synchronous endpoint.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs webhook payloads with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 600
	}
	if r.DescriptionFormat == "" {
		r.DescriptionFormat = "raw"
	}
}
