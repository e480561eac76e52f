// Mock OpenAI-compatible API for local development. Point the service at it
// with openai.base_url: http://localhost:9000/v1 and any OPENAI_API_KEY.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(512 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("TRANSCRIPTION REQUEST: model=%s filename=%s size=%d bytes",
		model, header.Filename, len(audioData))

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := transcriptionResponse{
		Text: "Alice opened the meeting. The team agreed to ship the beta on Friday. Bob will prepare the release notes.",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("TRANSCRIPTION RESPONSE SENT: %q", response.Text)
}

func chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	log.Printf("CHAT REQUEST: model=%s messages=%d max_tokens=%d",
		req.Model, len(req.Messages), req.MaxTokens)

	// Answer questions differently from summarization requests so both
	// pipeline paths can be exercised against the same mock
	content := "- The team agreed to ship the beta on Friday\n- Bob will prepare the release notes\n\nSubject: Beta release planning"
	for _, msg := range req.Messages {
		if strings.Contains(msg.Content, "QUESTION:") {
			content = "The beta ships on Friday, and Bob prepares the release notes."
			break
		}
	}

	time.Sleep(200 * time.Millisecond)

	response := chatResponse{
		ID:      "chatcmpl-mock",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
	}
	choice := chatChoice{FinishReason: "stop"}
	choice.Message.Role = "assistant"
	choice.Message.Content = content
	response.Choices = append(response.Choices, choice)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("CHAT RESPONSE SENT: %q", content)
}

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	flag.Parse()

	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)
	http.HandleFunc("/v1/chat/completions", chatHandler)

	log.Printf("Mock OpenAI API starting on %s", *addr)
	log.Printf("Transcriptions: http://localhost%s/v1/audio/transcriptions", *addr)
	log.Printf("Chat: http://localhost%s/v1/chat/completions", *addr)

	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
