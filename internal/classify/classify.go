// Package classify sends extracted page content to an external AI service
// and turns the response into a structured summary and classification.
// Classify never fails: any upstream problem degrades to a deterministic
// fallback result so a detected content change is never silently lost.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/model"
)

const (
	// maxPromptContent bounds how much page text is embedded in the prompt.
	maxPromptContent = 4000

	systemPrompt = "You are an expert content summarizer and classifier. " +
		"Your job is to create concise, informative summaries and classify " +
		"content based on importance and relevance."

	// Confidence is a fixed constant, not a calibrated model score: high
	// when the response parsed, near zero on fallback, so consumers can
	// tell "trust this" from "ignore this".
	parsedConfidence   = 0.8
	fallbackConfidence = 0.1

	fallbackSummary   = "Content summary could not be generated due to processing error."
	fallbackReasoning = "Fallback due to parsing error"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a classifier client from configuration.
func New(cfg config.ClassifierConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Classify summarizes and classifies the extracted content. The returned
// result is always fully populated; failures along the way (network,
// non-2xx, malformed JSON) are absorbed into the fallback result.
func (c *Client) Classify(ctx context.Context, title, content string, category model.Category) model.ClassificationResult {
	start := time.Now()

	raw, err := c.complete(ctx, buildPrompt(title, content, category))
	if err != nil {
		c.logger.Warn("classifier call failed", zap.Error(err))
		return c.fallback(time.Since(start))
	}

	parsed, ok := parseResponse(raw)
	if !ok {
		c.logger.Warn("classifier response unparseable",
			zap.Int("response_length", len(raw)))
		return c.fallback(time.Since(start))
	}

	keyPoints := parsed.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}

	return model.ClassificationResult{
		Summary:        parsed.Summary,
		KeyPoints:      keyPoints,
		Classification: parsed.Classification.classification(),
		Metadata: model.AIMetadata{
			Model:          c.model,
			ProcessingTime: time.Since(start),
			Confidence:     parsedConfidence,
			Reasoning:      parsed.Reasoning,
		},
	}
}

func (c *Client) fallback(elapsed time.Duration) model.ClassificationResult {
	return model.ClassificationResult{
		Summary:   fallbackSummary,
		KeyPoints: []string{"Content processing failed"},
		Classification: model.Classification{
			Tier:      model.Tier2,
			Category:  model.CategoryOther,
			Tags:      []string{"error"},
			Sentiment: model.SentimentNeutral,
			Urgency:   model.UrgencyLow,
		},
		Metadata: model.AIMetadata{
			Model:          c.model,
			ProcessingTime: elapsed,
			Confidence:     fallbackConfidence,
			Reasoning:      fallbackReasoning,
		},
	}
}

// complete posts one chat-completions request and returns the assistant
// message content.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("classifier client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.maxTokens,
		"temperature": 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	return completion.Choices[0].Message.Content, nil
}

// buildPrompt embeds title, category and a bounded content excerpt into the
// structured-response instructions.
func buildPrompt(title, content string, category model.Category) string {
	excerpt := content
	truncNote := ""
	if len(content) > maxPromptContent {
		// Back up so the cut never splits a multi-byte rune.
		cut := maxPromptContent
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		excerpt = content[:cut]
		truncNote = " ...[truncated]"
	}

	return fmt.Sprintf(`Please analyze the following content and provide a structured response in JSON format:

Title: %s
Category: %s
Content: %s%s

Please provide your response in the following JSON format:
{
  "summary": "A concise 2-3 sentence summary of the main points",
  "keyPoints": ["Key point 1", "Key point 2", "Key point 3"],
  "classification": {
    "tier": "tier1" or "tier2",
    "category": "%s",
    "tags": ["tag1", "tag2", "tag3"],
    "sentiment": "positive", "negative", or "neutral",
    "urgency": "low", "medium", "high", or "critical"
  },
  "reasoning": "Brief explanation of the classification decisions"
}

Classification Guidelines:
- Tier 1 (Critical): Breaking news, major announcements, urgent updates, significant changes
- Tier 2 (Informational): Regular updates, minor news, background information, routine content
- Sentiment: Overall tone of the content
- Urgency: How time-sensitive the information is
- Tags: Relevant keywords and topics (3-5 tags maximum)

Focus on accuracy and relevance. The summary should be informative but concise.`,
		title, category, excerpt, truncNote, category)
}
