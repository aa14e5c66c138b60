package openai

import (
    "context"
    "encoding/json"
    "errors"
    "strings"

    "github.com/HamedShams/sprint-pulse/internal/config"
    openai "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"
    "github.com/rs/zerolog"
)

type Client struct {
    key   string
    model string
    cli   openai.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey), option.WithRequestTimeout(cfg.OpenAITimeout))
    return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

// Summarize turns the sprint KPI payload into a short narrative for the
// team channel. Returns an error when no key is configured so callers can
// 503 instead of shipping an empty report.
func (c *Client) Summarize(ctx context.Context, kpis any) (string, error) {
    if strings.TrimSpace(c.key) == "" { return "", errors.New("openai: missing key") }
    c.log.Info().Str("model", c.model).Msg("openai Summarize call")
    userContent := ""
    if b, err := json.Marshal(kpis); err == nil { userContent = string(b) }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage("You are a senior agile coach. Given sprint KPIs (planned vs delivered, productivity, lead and cycle times, rollover and hygiene alerts), produce a concise, actionable sprint summary with anomalies and suggested actions."),
            openai.UserMessage(userContent),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}
