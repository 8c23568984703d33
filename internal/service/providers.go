package service

import "context"

// Captioner is the vision-model boundary consumed by the indexing pipeline.
// EncodeImage prepares an image exactly once; the Caption and Query calls all
// reuse that encoding, which is a contract of the pipeline, not an
// optimization detail.
type Captioner interface {
	EncodeImage(data []byte, format string) *EncodedImage
	Caption(ctx context.Context, enc *EncodedImage, length string) (string, error)
	Query(ctx context.Context, enc *EncodedImage, prompt string) (string, error)
}

// Embedder is the text-embedding boundary consumed by indexing and search.
// Both methods return vectors of the configured fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}
