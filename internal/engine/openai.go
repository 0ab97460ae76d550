package engine

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

const (
	defaultEvalTimeout = 5 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	// BaseURL of the server, with or without the trailing /v1.
	BaseURL string
	APIKey  string
	// Model sent in requests; defaults to the weight file's directory name.
	Model       string
	EvalTimeout time.Duration
	HTTPClient  *http.Client
}

// OpenAI talks to an OpenAI-compatible /v1/completions server.
type OpenAI struct {
	cfg OpenAIConfig
	log zerolog.Logger
}

// NewOpenAI builds the backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = defaultEvalTimeout
	}
	return &OpenAI{cfg: cfg, log: zerolog.Nop()}
}

// SetLogger installs a structured logger.
func (e *OpenAI) SetLogger(l zerolog.Logger) { e.log = l }

func (e *OpenAI) Name() string { return "openai" }

func (e *OpenAI) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	if strings.TrimSpace(e.cfg.BaseURL) == "" {
		return nil, fmt.Errorf("openai engine: base url is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := e.cfg.Model
	if name == "" {
		name = filepath.Base(filepath.Dir(spec.WeightPath))
	}
	e.log.Debug().Str("url", e.cfg.BaseURL).Str("model", name).Str("dtype", spec.DType).
		Bool("quantize", spec.Quantize).Str("device", spec.Device).Msg("binding remote model")
	return newCompletionsModel(e.cfg.BaseURL, e.cfg.APIKey, name, e.cfg.HTTPClient, e.cfg.EvalTimeout), nil
}

// completionsModel is a handle on a remote completions endpoint.
type completionsModel struct {
	client      openai.Client
	model       string
	evalTimeout time.Duration
}

func newCompletionsModel(baseURL, apiKey, model string, hc *http.Client, evalTimeout time.Duration) *completionsModel {
	opts := []option.RequestOption{
		option.WithBaseURL(apiBase(baseURL)),
		// Generation failures surface to the caller; no retries.
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return &completionsModel{client: openai.NewClient(opts...), model: model, evalTimeout: evalTimeout}
}

// apiBase normalizes a server URL to the /v1/ prefix the client resolves
// endpoint paths against.
func apiBase(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if !strings.HasSuffix(u, "/v1") {
		u += "/v1"
	}
	return u + "/"
}

func (m *completionsModel) Eval() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.evalTimeout)
	defer cancel()
	return m.ping(ctx)
}

func (m *completionsModel) ping(ctx context.Context) error {
	if _, err := m.client.Models.List(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (m *completionsModel) Generate(ctx context.Context, req Request) (string, error) {
	params, opts := completionParams(m.model, req)
	resp, err := m.client.Completions.New(ctx, params, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return fullText(req.Prompt, resp.Choices[0].Text), nil
}

func (m *completionsModel) Close() error { return nil }

// completionParams maps decode parameters onto a completions request.
// Knobs the OpenAI schema lacks are sent as extra fields understood by
// vLLM and llama.cpp servers.
func completionParams(model string, req Request) (openai.CompletionNewParams, []option.RequestOption) {
	d := req.Decode
	p := openai.CompletionNewParams{
		Model:     openai.CompletionNewParamsModel(model),
		Prompt:    openai.CompletionNewParamsPromptUnion{OfString: openai.String(req.Prompt)},
		MaxTokens: openai.Int(int64(d.MaxNewTokens)),
		Echo:      openai.Bool(true),
	}
	var opts []option.RequestOption
	if d.DoSample {
		p.Temperature = openai.Float(d.Temperature)
		p.TopP = openai.Float(d.TopP)
		if d.TopK > 0 {
			opts = append(opts, option.WithJSONSet("top_k", d.TopK))
		}
	} else {
		p.Temperature = openai.Float(0)
		if d.NumBeams > 1 {
			p.BestOf = openai.Int(int64(d.NumBeams))
			opts = append(opts, option.WithJSONSet("use_beam_search", true))
		}
	}
	if req.Seed != 0 {
		p.Seed = openai.Int(req.Seed)
	}
	if d.RepetitionPenalty > 0 {
		opts = append(opts,
			option.WithJSONSet("repetition_penalty", d.RepetitionPenalty),
			option.WithJSONSet("repeat_penalty", d.RepetitionPenalty),
		)
	}
	if d.NoRepeatNgramSize > 0 {
		opts = append(opts, option.WithJSONSet("no_repeat_ngram_size", d.NoRepeatNgramSize))
	}
	if d.MinNewTokens > 0 {
		opts = append(opts, option.WithJSONSet("min_tokens", d.MinNewTokens))
	}
	if req.MaxInputTokens > 0 {
		opts = append(opts, option.WithJSONSet("truncate_prompt_tokens", req.MaxInputTokens))
	}
	return p, opts
}
