// Package transcription implements the speech-to-text client. It sends
// normalized audio files to the OpenAI transcription API, with a bounded
// retry policy with exponential backoff for transient failures.
package transcription
