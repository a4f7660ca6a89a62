// Package citations normalizes heterogeneous retrieval-service response
// shapes into a canonical, deduplicated citation list.
package citations

import "unicode/utf8"

// The external service returns citation data under one of three shapes
// depending on provider version: "sources", "chunks" or "references". Exactly
// one shape is consumed per response, in that priority order.

const (
	maxExcerptLength = 200
	maxCitations     = 5
	ellipsis         = "..."
)

// Citation is a normalized reference into a source document.
type Citation struct {
	DocumentID       string
	DocumentFilename string
	PageNumber       int
	TextExcerpt      string
	StartPosition    *int
	EndPosition      *int
	Confidence       float64
}

type extractor func(map[string]any) []Citation

// Ordered by priority; the first extractor yielding at least one citation
// wins and the rest are ignored.
var extractors = []extractor{fromSources, fromChunks, fromReferences}

// Extract normalizes citations out of a raw query response. Malformed or
// missing fields default; a raw value that is not a mapping yields an empty
// list. Extract never fails.
func Extract(raw any) []Citation {
	m, ok := raw.(map[string]any)
	if !ok || m == nil {
		return []Citation{}
	}
	for _, ex := range extractors {
		if found := ex(m); len(found) > 0 {
			return dedupe(found)
		}
	}
	return []Citation{}
}

// ForStorage flattens citations into field maps suitable for persisting on an
// assistant message. No information is lost.
func ForStorage(list []Citation) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		entry := map[string]any{
			"document_id":    c.DocumentID,
			"page_number":    c.PageNumber,
			"text_excerpt":   c.TextExcerpt,
			"start_position": intPtrValue(c.StartPosition),
			"end_position":   intPtrValue(c.EndPosition),
			"confidence":     c.Confidence,
		}
		if c.DocumentFilename != "" {
			entry["document_filename"] = c.DocumentFilename
		}
		out = append(out, entry)
	}
	return out
}

func fromSources(m map[string]any) []Citation {
	var out []Citation
	for _, item := range listOfMaps(m, "sources") {
		out = append(out, Citation{
			DocumentID:    getString(item, "document_id"),
			PageNumber:    getPage(item, "page_number"),
			TextExcerpt:   truncateExcerpt(getString(item, "text")),
			StartPosition: getIntPtr(item, "start_position"),
			EndPosition:   getIntPtr(item, "end_position"),
			Confidence:    getScore(item, "score"),
		})
	}
	return out
}

func fromChunks(m map[string]any) []Citation {
	var out []Citation
	for _, item := range listOfMaps(m, "chunks") {
		out = append(out, Citation{
			DocumentID:  getString(item, "doc_id"),
			PageNumber:  getPage(item, "page_num"),
			TextExcerpt: truncateExcerpt(getString(item, "content")),
			Confidence:  getScore(item, "similarity_score"),
		})
	}
	return out
}

func fromReferences(m map[string]any) []Citation {
	var out []Citation
	for _, item := range listOfMaps(m, "references") {
		out = append(out, Citation{
			DocumentID:  getString(item, "document_id"),
			PageNumber:  getPage(item, "page"),
			TextExcerpt: truncateExcerpt(getString(item, "excerpt")),
			Confidence:  getScore(item, "relevance"),
		})
	}
	return out
}

// dedupe collapses citations sharing the same (document id, page) pair,
// keeping the first occurrence, and caps the list.
func dedupe(list []Citation) []Citation {
	type key struct {
		doc  string
		page int
	}
	seen := make(map[key]struct{}, len(list))
	out := make([]Citation, 0, len(list))
	for _, c := range list {
		k := key{doc: c.DocumentID, page: c.PageNumber}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
		if len(out) == maxCitations {
			break
		}
	}
	return out
}

func truncateExcerpt(text string) string {
	if len(text) <= maxExcerptLength {
		return text
	}
	// Back up to a rune boundary so the cut never splits a multibyte rune.
	cut := maxExcerptLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + ellipsis
}

func listOfMaps(m map[string]any, field string) []map[string]any {
	raw, ok := m[field].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok {
			out = append(out, entry)
		}
	}
	return out
}

func getString(m map[string]any, field string) string {
	if s, ok := m[field].(string); ok {
		return s
	}
	return ""
}

func getPage(m map[string]any, field string) int {
	page := getInt(m, field)
	if page < 1 {
		return 1
	}
	return page
}

func getInt(m map[string]any, field string) int {
	switch v := m[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func getIntPtr(m map[string]any, field string) *int {
	if _, present := m[field]; !present {
		return nil
	}
	switch v := m[field].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	default:
		return nil
	}
}

func getScore(m map[string]any, field string) float64 {
	var score float64
	switch v := m[field].(type) {
	case float64:
		score = v
	case int:
		score = float64(v)
	default:
		return 0.0
	}
	if score < 0 {
		return 0.0
	}
	if score > 1 {
		return 1.0
	}
	return score
}

func intPtrValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
