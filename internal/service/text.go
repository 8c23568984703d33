package service

import "strings"

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// buildEmbedText concatenates the caption and tag outputs into the single
// string that gets embedded. The same concatenation is used for every record
// so that query vectors and stored vectors live in one text distribution.
func buildEmbedText(shortCaption, longCaption, tags string) string {
	segments := make([]string, 0, 3)
	for _, seg := range []string{shortCaption, longCaption, tags} {
		if cleaned := normalizeWhitespace(seg); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}
	return strings.Join(segments, " ")
}
