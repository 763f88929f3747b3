package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gfitzpatrick-eightfold/Macros/internal/logger"
	"github.com/gfitzpatrick-eightfold/Macros/internal/macro"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service turns a natural-language requirement plus a sample API response
// into a validated macro configuration by calling an LLM backend. The core
// never retries a bad configuration; only transport failures are retried.
type Service struct {
	registry   *macro.Registry
	httpClient *http.Client
	Config     Config
}

// Config selects the generation backend.
type Config struct {
	Provider   string // "ollama" or "cloud"
	Endpoint   string // e.g. "http://localhost:11434/api/generate"
	Model      string // e.g. "llama3"
	APIKey     string // optional for local, required for cloud
	MaxRetries int    // maximum transport attempts per request
	RetryDelay time.Duration
}

type OllamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type OllamaResponse struct {
	Response string `json:"response"`
}

func NewService(r *macro.Registry, cfg Config) *Service {
	return &Service{
		registry:   r,
		httpClient: &http.Client{Timeout: 600 * time.Second},
		Config:     cfg,
	}
}

// Generate produces a macro configuration satisfying the requirement against
// the shape of the sample document. The backend's text blob is stripped of
// markdown fences, parsed as JSON and run through the validator; whatever
// fails there is surfaced verbatim to the caller.
func (s *Service) Generate(requirement string, sample interface{}) (map[string]interface{}, error) {
	prompt, err := s.BuildPrompt(requirement, sample)
	if err != nil {
		return nil, err
	}

	raw, err := s.request(prompt)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, err
	}
	return s.registry.ValidateConfig(cfg)
}

func (s *Service) request(prompt string) (string, error) {
	requestID := uuid.NewString()

	maxRetries := s.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := s.Config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	var text string
	var err error
	for i := 0; i < maxRetries; i++ {
		if s.Config.Provider == "ollama" {
			text, err = s.callOllama(prompt)
		} else {
			text, err = s.callCloud(prompt)
		}
		if err == nil {
			return text, nil
		}

		if i < maxRetries-1 {
			logger.Warn("Generation request failed, retrying",
				zap.String("request_id", requestID),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("retry_delay", retryDelay),
				zap.Error(err))
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}
	return "", fmt.Errorf("all generation attempts failed: %v", err)
}

func (s *Service) callOllama(prompt string) (string, error) {
	reqBody := OllamaRequest{
		Model:   s.Config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]interface{}{"temperature": 0.1},
	}

	jsonData, _ := json.Marshal(reqBody)
	logger.Debug("Waiting for generation backend")
	resp, err := s.httpClient.Post(s.Config.Endpoint, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("ollama connection failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	body, _ := io.ReadAll(resp.Body)
	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %v", err)
	}
	if ollamaResp.Response == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}
	return ollamaResp.Response, nil
}

func (s *Service) callCloud(prompt string) (string, error) {
	apiKey := s.Config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("no API key configured and GEMINI_API_KEY is not set")
	}

	// Format: <Endpoint>/<Model>:generateContent?key=<ApiKey>
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.Config.Endpoint, s.Config.Model, apiKey)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.1,
			"maxOutputTokens": 1024,
		},
	}

	jsonData, _ := json.Marshal(payload)
	resp, err := s.httpClient.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("cloud connection failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cloud api error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		return result.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("no content returned from backend")
}
