package types

// ProfileInfo describes an inference profile.
type ProfileInfo struct {
	// example: optimized
	Name string `json:"name" example:"optimized"`
	// fp32, fp16 or int8-dynamic.
	// example: int8-dynamic
	Precision string `json:"precision" example:"int8-dynamic"`
	// cpu, cuda-if-available or cpu-forced.
	// example: cuda-if-available
	Device            string  `json:"device" example:"cuda-if-available"`
	DoSample          bool    `json:"do_sample"`
	NumBeams          int     `json:"num_beams" example:"2"`
	Temperature       float64 `json:"temperature,omitempty"`
	TopP              float64 `json:"top_p,omitempty"`
	RepetitionPenalty float64 `json:"repetition_penalty" example:"1.3"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size,omitempty" example:"3"`
	MinNewTokens      int     `json:"min_new_tokens" example:"12"`
	MaxNewTokens      int     `json:"max_new_tokens" example:"40"`
	// hard or head-tail.
	// example: head-tail
	Truncation     string `json:"truncation" example:"head-tail"`
	MaxInputTokens int    `json:"max_input_tokens" example:"768"`
}
