// Package generator abstracts the external text-generation backend that
// turns an instruction plus the current document into a new candidate
// document.  Output is untrusted until it passes internal/sanitize.
package generator

import (
	"context"
	"fmt"
)

// Contact carries the business contact block used on generated pages.
type Contact struct {
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	Hours    string `json:"hours,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// SiteBrief is everything the wizard gathered for a first publish.
type SiteBrief struct {
	BusinessType   string   `json:"business_type"`
	BusinessName   string   `json:"business_name"`
	Description    string   `json:"description,omitempty"`
	Services       []string `json:"services,omitempty"`
	PrimaryColor   string   `json:"primary_color,omitempty"`
	SecondaryColor string   `json:"secondary_color,omitempty"`
	Contact        Contact  `json:"contact"`
	LogoURL        string   `json:"logo_url,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
}

// SectionRequest is one steady-state edit: the current document plus the
// operator's instruction for a single section.
type SectionRequest struct {
	CurrentHTML string
	Section     string
	NewText     string
	NewImageURL string
	Instruction string
}

// Generator is the external collaborator.  Implementations must honor ctx
// cancellation; a deadline expiry is reported as a GenerationError like
// any other provider failure.
type Generator interface {
	GenerateSite(ctx context.Context, brief SiteBrief) (string, error)
	UpdateSection(ctx context.Context, req SectionRequest) (string, error)
	ImproveText(ctx context.Context, text, about string) (string, error)
}

// GenerationError wraps any network, provider, or malformed-response
// failure from the backend.  Quota consumed before the call is not
// refunded when one of these surfaces.
type GenerationError struct {
	Op     string // "generate_site", "update_section", "improve_text"
	Status int    // HTTP status when applicable, else 0
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generator %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("generator %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
