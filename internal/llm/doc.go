// Package llm wraps the chat-completion API used for summarizing transcripts
// and answering questions about them.
package llm
