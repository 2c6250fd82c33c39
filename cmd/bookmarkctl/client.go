package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/chat"
	"github.com/bookmarkai/bookmark-server/internal/model"
)

// client is a thin REST client for the bookmark service. Streaming requests use a
// client without an overall timeout; they end with the stream or the context.
type client struct {
	rc     *resty.Client
	stream *resty.Client
}

func newClient(apiURL, ownerID string) *client {
	base := func() *resty.Client {
		return resty.New().
			SetBaseURL(strings.TrimRight(apiURL, "/")).
			SetHeader(auth.OwnerHeader, ownerID)
	}
	return &client{rc: base().SetTimeout(30 * time.Second), stream: base()}
}

func statusErr(resp *resty.Response) error {
	var er respond.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &er); err == nil && er.Message != "" {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), er.Message)
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}

func (c *client) search(ctx context.Context, query string, hybrid bool, limit int) ([]model.ItemMetadata, error) {
	var out []model.ItemMetadata
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]any{"query": query, "use_hybrid": hybrid, "limit_chunks": limit}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusErr(resp)
	}
	return out, nil
}

func (c *client) createConversation(ctx context.Context) (string, error) {
	var id string
	resp, err := c.rc.R().SetContext(ctx).SetResult(&id).Put("/conversation")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", statusErr(resp)
	}
	return id, nil
}

func (c *client) listConversations(ctx context.Context) ([]model.ConversationSummary, error) {
	var out []model.ConversationSummary
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get("/conversations")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusErr(resp)
	}
	return out, nil
}

func (c *client) history(ctx context.Context, conversationID string) ([]model.ConversationMessage, error) {
	var out []model.ConversationMessage
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", conversationID).
		SetResult(&out).
		Get("/chat-history")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusErr(resp)
	}
	return out, nil
}

// chat streams one turn, handing every event to onEvent in order.
func (c *client) chat(ctx context.Context, question, conversationID string, selected []string, onEvent func(chat.WireEvent) error) error {
	req := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetQueryParam("q", question)
	if conversationID != "" {
		req.SetQueryParam("conversation_id", conversationID)
	}
	if len(selected) > 0 {
		req.SetQueryParamsFromValues(map[string][]string{"selected_context": selected})
	}
	resp, err := req.Get("/chat")
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()
	if resp.StatusCode() != http.StatusOK {
		data, _ := io.ReadAll(body)
		return fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(string(data)))
	}

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev chat.WireEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
		if ev.Done {
			if ev.Error != "" {
				return fmt.Errorf("generation failed: %s", ev.Error)
			}
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream ended without a final event")
}
