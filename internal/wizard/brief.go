// internal/wizard/brief.go
//
// Turning an accumulated field map into a generation brief.
//
// Field keys are free-form during intake; only when generation is
// requested do we demand the minimum: a business name and type.  The
// check is expressed as validator tags on a throwaway struct, matching
// how config validation works elsewhere.
package wizard

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/webforja/forja/internal/generator"
)

// Default brand colors applied when the operator skipped step 2.
const (
	defaultPrimary   = "#3B82F6"
	defaultSecondary = "#1E40AF"
)

var v = validator.New()

// ValidationError reports fields still missing for generation, or a
// malformed step submission.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

type required struct {
	BusinessName string `validate:"required"`
	BusinessType string `validate:"required"`
}

// Brief converts the session's field map into a generator brief,
// validating that required intake fields are present.
func Brief(fields map[string]any) (generator.SiteBrief, error) {
	b := generator.SiteBrief{
		BusinessType:   str(fields, "business_type"),
		BusinessName:   str(fields, "business_name"),
		Description:    str(fields, "description"),
		Services:       strSlice(fields, "services"),
		PrimaryColor:   strOr(fields, "primary_color", defaultPrimary),
		SecondaryColor: strOr(fields, "secondary_color", defaultSecondary),
		LogoURL:        str(fields, "logo_url"),
		ImageURLs:      strSlice(fields, "image_urls"),
	}
	if c, ok := fields["contact"].(map[string]any); ok {
		b.Contact = generator.Contact{
			Phone:    str(c, "phone"),
			Email:    str(c, "email"),
			Address:  str(c, "address"),
			Hours:    str(c, "hours"),
			WhatsApp: str(c, "whatsapp"),
		}
	}

	if err := v.Struct(required{BusinessName: b.BusinessName, BusinessType: b.BusinessType}); err != nil {
		verr := &ValidationError{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				switch fe.Field() {
				case "BusinessName":
					verr.Missing = append(verr.Missing, "business_name")
				case "BusinessType":
					verr.Missing = append(verr.Missing, "business_type")
				}
			}
		} else {
			verr.Reason = err.Error()
		}
		return generator.SiteBrief{}, verr
	}
	return b, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func strOr(m map[string]any, key, fallback string) string {
	if s := str(m, key); s != "" {
		return s
	}
	return fallback
}

func strSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
