package gemini

// GenerateContentRequest is a Gemini generateContent request. The model
// name travels in the URL path, not the body.
type GenerateContentRequest struct {
	// Contents is the conversation history. Roles are "user" and "model".
	Contents []Content `json:"contents"`

	// SystemInstruction is the system prompt.
	SystemInstruction *Content `json:"systemInstruction,omitempty"`

	// GenerationConfig holds sampling and length parameters.
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a role-attributed list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one element of a content. Only text parts are translated.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig holds the generation parameters of a request.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// GenerateContentResponse is a Gemini generateContent response. The same
// shape is used for each SSE payload of streamGenerateContent.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        int     `json:"index"`
}

// UsageMetadata reports token consumption in Gemini's vocabulary.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ErrorResponse is the Gemini error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error fields inside the envelope.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
