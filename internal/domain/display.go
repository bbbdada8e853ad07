package domain

import "context"

// DisplayHandle identifies one open display target (a tab or a frame).
type DisplayHandle string

// DisplaySurface shows a URL somewhere visible.
type DisplaySurface interface {
	// Open shows url and returns a handle for closing it later.
	Open(ctx context.Context, url string) (DisplayHandle, error)
	// Close removes the target. Closing an unknown handle is a no-op.
	Close(ctx context.Context, h DisplayHandle) error
	// Name returns the backend identifier ("chromedp", "frame", "none").
	Name() string
}

// TitleLookup fetches a best-effort page title. Failures yield "".
type TitleLookup interface {
	Lookup(ctx context.Context, url string) string
}

// ContentSuggester proposes URLs for a topic. An empty list means no suggestions.
type ContentSuggester interface {
	Suggest(ctx context.Context, topic string, exampleURLs []string) ([]string, error)
}
