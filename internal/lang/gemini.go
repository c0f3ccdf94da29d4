package lang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const (
	geminiTextModel = "gemini-2.0-flash"
	geminiTTSModel  = "gemini-2.5-flash-preview-tts"
	geminiVoice     = "Kore"
)

// GeminiProvider implements Provider using the Google Gemini SDK.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

type translatedText struct {
	TranslatedText string `json:"translated_text"`
}

// Translate asks the model for a structured JSON translation so no prose
// leaks into the output.
func (p *GeminiProvider) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	prompt := fmt.Sprintf("Translate the following text to %s. Respond only with the translation.\n\n%s", targetLang, text)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"translated_text": {Type: genai.TypeString},
			},
		},
	}
	result, err := p.client.Models.GenerateContent(ctx, geminiTextModel, genai.Text(prompt), config)
	if err != nil {
		return "", mapGeminiError(err)
	}

	var out translatedText
	if err := json.Unmarshal([]byte(result.Text()), &out); err != nil {
		return "", &ErrBadResponse{Detail: "translation JSON", Err: err}
	}
	if out.TranslatedText == "" {
		return "", &ErrBadResponse{Detail: "empty translation", Err: nil}
	}
	return out.TranslatedText, nil
}

// Synthesize requests an audio response from the TTS model.
func (p *GeminiProvider) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: geminiVoice},
			},
		},
	}
	result, err := p.client.Models.GenerateContent(ctx, geminiTTSModel, genai.Text(text), config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, &ErrBadResponse{Detail: "no audio in response", Err: nil}
}

func mapGeminiError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ErrRateLimit{Err: err}
		case apiErr.Code >= 500:
			return &ErrUnavailable{Err: err}
		}
	}
	return err
}
