package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/kayz/promptforge/internal/logger"
	"github.com/kayz/promptforge/internal/promptbuild"
	"github.com/kayz/promptforge/internal/shape"
)

const (
	// ReplyKey is the key and scope of the default reply action.
	ReplyKey = "reply"
	// ParamInput carries optional user input for the reply action.
	ParamInput = "input"
	// KeyInput is the provider key used for ParamInput.
	KeyInput = "input"
)

// Reply is the result of the reply action. Record is set only when an output
// shape is configured and the model's text could be coerced.
type Reply struct {
	Text   string       `json:"text"`
	Record shape.Record `json:"record,omitempty"`
}

func replyAction() Action {
	return Action{
		Key:   ReplyKey,
		Title: "Reply",
		Run:   runReply,
	}
}

func runReply(ctx context.Context, a *Agent, params Params) (any, error) {
	input, _ := params.String(ParamInput)
	input = strings.TrimSpace(input)
	// Input belongs to this run only; never leave it in the collection.
	a.RemoveProvider(KeyInput)
	if input != "" {
		a.UpsertProvider(inputProvider(input))
		defer a.RemoveProvider(KeyInput)
	}

	text, err := a.Generate(ctx, ReplyKey)
	if err != nil {
		return nil, err
	}

	a.remember(ctx, input, text)

	reply := Reply{Text: text}
	s := a.OutputShape()
	if s.IsEmpty() {
		return reply, nil
	}

	record, err := shape.Coerce(s, text)
	if err != nil {
		logger.Warn("[AGENT] Output coercion failed, returning raw text: %v", err)
		var parseErr *shape.JSONParseError
		if errors.As(err, &parseErr) {
			logger.Debug("[AGENT] Coercion candidate: %s", parseErr.Candidate)
		}
		return reply, nil
	}
	reply.Record = record
	return reply, nil
}

// inputProvider renders the caller's input just before the shape reminder.
func inputProvider(input string) promptbuild.Provider {
	p := promptbuild.Static(KeyInput, promptbuild.RolePrompt, input)
	p.Title = "Input"
	p.Scope = ReplyKey
	p.Order = shape.ProviderOrder - 1
	return p
}

// remember stores the exchange so history providers can replay it.
func (a *Agent) remember(ctx context.Context, input, text string) {
	if a.store == nil {
		return
	}
	conv, err := a.store.GetOrCreateConversation(ctx, a.name, ReplyKey)
	if err != nil {
		logger.Warn("[AGENT] Failed to open conversation: %v", err)
		return
	}
	if input != "" {
		if _, err := a.store.AppendMessage(ctx, conv.ID, "user", input); err != nil {
			logger.Warn("[AGENT] Failed to store input: %v", err)
		}
	}
	if _, err := a.store.AppendMessage(ctx, conv.ID, "assistant", text); err != nil {
		logger.Warn("[AGENT] Failed to store reply: %v", err)
	}
}
