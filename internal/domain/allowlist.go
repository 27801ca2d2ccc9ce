package domain

// ResourceCategory classifies a protected resource domain.
type ResourceCategory string

const (
	CategoryCrisisLine   ResourceCategory = "crisis_line"
	CategoryHelpSite     ResourceCategory = "help_site"
	CategoryReporting    ResourceCategory = "reporting"
	CategoryCounseling   ResourceCategory = "counseling"
	CategoryURLShortener ResourceCategory = "url_shortener"
)

// ProtectedResourceEntry is a single domain on the protected-resource list.
// Entries are immutable once loaded; the feed replaces the whole set.
type ProtectedResourceEntry struct {
	Domain   string           `json:"domain"`
	Category ResourceCategory `json:"category"`
}
