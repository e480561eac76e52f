// Package notify forwards finished summaries to an optional webhook.
// Delivery is attempted exactly once and failures never propagate.
package notify
