// Package audio handles audio format normalization. It invokes ffmpeg as an
// external process to transcode uploaded recordings into mono 16 kHz PCM WAV
// and verifies the result by inspecting the WAV header.
package audio
