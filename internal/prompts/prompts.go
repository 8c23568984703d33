package prompts

// Vision model prompts used during indexing. The captions come from the
// model's native caption endpoint; everything prompt-shaped lives here so the
// pipeline code stays free of literal strings.

// TagPrompt asks the vision model for the auto-tag string stored alongside
// the captions. The answer is expected to be a flat comma-separated list.
const TagPrompt = "List comma-separated tags for this image"

// Caption length hints accepted by the vision model's caption endpoint.
const (
	CaptionLengthShort  = "short"
	CaptionLengthNormal = "normal"
)
