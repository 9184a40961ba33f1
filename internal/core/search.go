package core

import (
	"net/url"
	"strings"
)

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchLinks returns search links for query on three trusted health sites.
// The caller rejects empty queries.
func SearchLinks(query string) []SearchResult {
	q := strings.TrimSpace(query)
	esc := strings.ReplaceAll(url.QueryEscape(q), "+", "%20")

	return []SearchResult{
		{
			Title:   "Mayo Clinic - " + q,
			Snippet: "Comprehensive medical information about " + q + " from Mayo Clinic experts.",
			URL:     "https://www.mayoclinic.org/search/search-results?q=" + esc,
		},
		{
			Title:   "WebMD - " + q,
			Snippet: "Symptoms, causes, and treatment information for " + q + ".",
			URL:     "https://www.webmd.com/search/search_results/default.aspx?query=" + esc,
		},
		{
			Title:   "MedlinePlus - " + q,
			Snippet: "Trusted health information about " + q + " from the National Library of Medicine.",
			URL:     "https://medlineplus.gov/search/?query=" + esc,
		},
	}
}
