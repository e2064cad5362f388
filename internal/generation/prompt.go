package generation

import (
	"regexp"
	"strings"

	"github.com/promptmarket/gallery/internal/models"
)

const (
	SubjectPlaceholder = "{subject}"

	// DefaultSubject fills the placeholder when the user leaves it empty
	DefaultSubject = "something amazing"

	// PersonaDefaultSubject is the empty-subject fallback for persona prompts
	PersonaDefaultSubject = "standing confidently"
)

var aspectOverride = regexp.MustCompile(`--ar\s+\d+:\d+`)

// BuildPrompt replaces the first subject placeholder in template and strips
// inline aspect ratio flags. An empty subject uses fallback, or
// DefaultSubject when fallback is empty too.
func BuildPrompt(template, subject, fallback string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = fallback
	}
	if subject == "" {
		subject = DefaultSubject
	}

	filled := strings.Replace(template, SubjectPlaceholder, subject, 1)
	return strings.TrimSpace(aspectOverride.ReplaceAllString(filled, ""))
}

// AspectRatioFor maps a catalog shape hint to a concrete ratio
func AspectRatioFor(hint models.AspectRatio) string {
	switch hint {
	case models.AspectPortrait:
		return "3:4"
	case models.AspectLandscape:
		return "16:9"
	default:
		return "1:1"
	}
}

// SubjectFromTitle drops the first word of a catalog title, or returns the
// whole title when it has only one.
func SubjectFromTitle(title string) string {
	words := strings.Split(title, " ")
	if len(words) > 1 {
		if rest := strings.Join(words[1:], " "); rest != "" {
			return rest
		}
	}
	return title
}
