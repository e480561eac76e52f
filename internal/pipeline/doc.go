// Package pipeline orchestrates the upload flow: persist the recording,
// normalize it with ffmpeg, transcribe it, summarize the transcript, and
// forward the result to the optional webhook. It also answers questions
// about the most recent transcript.
package pipeline
