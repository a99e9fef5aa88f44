// internal/generator/client.go
//
// HTTP client for a messages-style completion API.
//
// Context
// -------
// One Client is built at boot from config and shared by the pipeline.
// Every call is bounded by the configured timeout; an expired deadline is
// indistinguishable, for the caller, from any other provider failure.
// Responses often wrap the document in a fenced block or prose, so the
// raw text runs through ExtractHTML before it is returned.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webforja/forja/internal/config"
)

const apiVersion = "2023-06-01"

// Client implements Generator against an Anthropic-compatible endpoint.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	http      *http.Client
	log       *zap.SugaredLogger
}

// NewClient builds a Client from the generator config section.
func NewClient(cfg config.Generator, log *zap.SugaredLogger) *Client {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout(),
		http:      &http.Client{},
		log:       log,
	}
}

//
// Generator implementation
//

// GenerateSite produces a complete landing page for a first publish.
func (c *Client) GenerateSite(ctx context.Context, brief SiteBrief) (string, error) {
	raw, err := c.call(ctx, "generate_site", sitePrompt(brief), c.maxTokens)
	if err != nil {
		return "", err
	}
	return ExtractHTML(raw), nil
}

// UpdateSection rewrites one section of the current document, leaving the
// rest of the markup untouched.
func (c *Client) UpdateSection(ctx context.Context, req SectionRequest) (string, error) {
	raw, err := c.call(ctx, "update_section", sectionPrompt(req), c.maxTokens)
	if err != nil {
		return "", err
	}
	return ExtractHTML(raw), nil
}

// ImproveText polishes operator-supplied copy without touching any site.
func (c *Client) ImproveText(ctx context.Context, text, about string) (string, error) {
	prompt := fmt.Sprintf(
		"Improve this text for a professional web page.  Keep the original "+
			"message, at most three sentences, no technical jargon.\n\n"+
			"TEXT:\n%q\n\nCONTEXT: %s\n\n"+
			"Reply with only the improved text, no quotes, no explanations.",
		text, about)
	out, err := c.call(ctx, "improve_text", prompt, 500)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

//
// wire types
//

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// call performs one bounded round-trip and returns the raw completion.
func (c *Client) call(ctx context.Context, op, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &GenerationError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("generator call failed", "op", op, "err", err)
		return "", &GenerationError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warnw("generator rejected call",
			"op", op, "status", resp.StatusCode, "detail", string(detail))
		return "", &GenerationError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("provider response: %s", strings.TrimSpace(string(detail))),
		}
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GenerationError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if len(out.Content) == 0 || out.Content[0].Text == "" {
		return "", &GenerationError{Op: op, Err: fmt.Errorf("empty completion")}
	}

	c.log.Debugw("generator call ok", "op", op, "elapsed", time.Since(start).Truncate(time.Millisecond))
	return out.Content[0].Text, nil
}

//
// prompt assembly
//

func sitePrompt(b SiteBrief) string {
	var sb strings.Builder
	sb.WriteString("You are an expert web developer and designer.  Generate a complete, professional HTML5 landing page.\n\n")
	sb.WriteString("BUSINESS:\n")
	fmt.Fprintf(&sb, "- Type: %s\n- Name: %s\n- Description: %s\n", b.BusinessType, b.BusinessName, b.Description)
	if len(b.Services) > 0 {
		fmt.Fprintf(&sb, "- Services: %s\n", strings.Join(b.Services, ", "))
	}
	fmt.Fprintf(&sb, "- Primary color: %s\n- Secondary color: %s\n", b.PrimaryColor, b.SecondaryColor)
	fmt.Fprintf(&sb, "- Contact: phone %s, email %s, address %s, hours %s\n",
		b.Contact.Phone, b.Contact.Email, b.Contact.Address, b.Contact.Hours)
	if b.LogoURL != "" {
		fmt.Fprintf(&sb, "- Logo: %s\n", b.LogoURL)
	}
	for _, u := range b.ImageURLs {
		fmt.Fprintf(&sb, "- Image: %s\n", u)
	}
	sb.WriteString("\nREQUIREMENTS: semantic HTML5, Tailwind CSS via CDN " +
		"(https://cdn.tailwindcss.com), Google Fonts, responsive mobile-first " +
		"layout, hero / services / about / contact / footer sections, " +
		"placeholder images from https://placehold.co, basic SEO meta tags, " +
		"no JavaScript beyond the CSS framework include.\n\n" +
		"Reply with ONLY the complete HTML, no explanations.")
	return sb.String()
}

func sectionPrompt(r SectionRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an expert web developer.\n\nCURRENT SITE HTML:\n```html\n")
	sb.WriteString(r.CurrentHTML)
	sb.WriteString("\n```\n\n")
	fmt.Fprintf(&sb, "TASK: update only the %q section.\n", r.Section)
	if r.NewText != "" {
		fmt.Fprintf(&sb, "- New text: %q\n", r.NewText)
	}
	if r.NewImageURL != "" {
		fmt.Fprintf(&sb, "- New image: %s (use this exact path)\n", r.NewImageURL)
	}
	if r.Instruction != "" {
		fmt.Fprintf(&sb, "- Additional instructions: %s\n", r.Instruction)
	}
	sb.WriteString("\nKeep the design, structure, styles, colors, fonts, and " +
		"every other section exactly as they are.  Reply with ONLY the " +
		"complete updated HTML, no explanations or comments.")
	return sb.String()
}
