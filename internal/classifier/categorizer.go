package classifier

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"brokemate/internal/cache"
	"brokemate/internal/core"
)

// Labels are the categories offered to the model, in order.
var Labels = []string{"Food", "Luxury", "Travel", "Utilities", "Shopping", "Education", "Health & Fitness"}

// Categorizer bounds classifier latency and degrades to core.DefaultCategory.
// A nil classifier is valid and always yields the default.
type Categorizer struct {
	classifier Classifier
	timeout    time.Duration
	labels     map[string]struct{}
	cache      *cache.LRUCache[string]
}

func NewCategorizer(c Classifier, timeout time.Duration) *Categorizer {
	known := make(map[string]struct{}, len(Labels))
	for _, l := range Labels {
		known[l] = struct{}{}
	}
	return &Categorizer{classifier: c, timeout: timeout, labels: known}
}

// WithCache remembers successful classifications by normalized description.
func (c *Categorizer) WithCache(lc *cache.LRUCache[string]) *Categorizer {
	c.cache = lc
	return c
}

// Enabled reports whether a classifier is configured.
func (c *Categorizer) Enabled() bool {
	return c != nil && c.classifier != nil
}

// Categorize never fails: any classifier problem yields core.DefaultCategory.
func (c *Categorizer) Categorize(ctx context.Context, description string) string {
	if !c.Enabled() {
		return core.DefaultCategory
	}

	key := strings.ToLower(strings.TrimSpace(description))
	if c.cache != nil {
		if label, ok := c.cache.Get(key); ok {
			return label
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	label, err := c.classifier.Classify(ctx, description, Labels)
	if err != nil {
		slog.WarnContext(ctx, "Classification failed, using default category",
			"error", err,
			"duration", time.Since(start))
		return core.DefaultCategory
	}
	if _, ok := c.labels[label]; !ok {
		slog.WarnContext(ctx, "Classifier returned unknown label", "label", label)
		return core.DefaultCategory
	}

	slog.DebugContext(ctx, "Transaction classified",
		"category", label,
		"duration", time.Since(start))
	if c.cache != nil {
		c.cache.Set(key, label)
	}
	return label
}

// Close releases idle connections held by the underlying client.
func (c *Categorizer) Close() {
	if c == nil || c.classifier == nil {
		return
	}
	if closer, ok := c.classifier.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
