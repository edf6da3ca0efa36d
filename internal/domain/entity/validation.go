package entity

import "strings"

// Validate checks the recipe invariant from §3: a recipe participates in
// configurable-HTML discovery only if it carries a usable search pattern
// or an RSS/sitemap alternative, and that its declared discovery type is
// actually satisfied.
func (r *SourceRecipe) Validate() error {
	if strings.TrimSpace(r.Domain) == "" {
		return &ValidationError{Field: "domain", Message: "domain is required"}
	}
	if !r.ParticipatesInDiscovery() {
		return &ValidationError{
			Field:   "search_url_pattern",
			Message: "must contain {keyword}, or rss_urls/sitemap_url must be set",
		}
	}
	if r.DiscoveryType != "" && !r.SatisfiesDiscoveryType() {
		return &ValidationError{
			Field:   "discovery_type",
			Message: "declared discovery_type is not satisfied by the recipe's fields",
		}
	}
	return nil
}

// Validate enforces that a topic has a non-empty name. The query template
// is not checked; placeholders other than {brand} and {keyword} pass
// through unsubstituted.
func (t *Topic) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

// Validate enforces that a keyword is non-empty once cleaned.
func (k *Keyword) Validate() error {
	if strings.TrimSpace(k.Term) == "" {
		return &ValidationError{Field: "term", Message: "term is required"}
	}
	return nil
}
