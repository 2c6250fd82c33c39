package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/api/sse"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/chat"
)

// TurnRunner executes one chat turn against a sink.
type TurnRunner interface {
	Run(ctx context.Context, t chat.Turn, sink chat.Sink) error
}

type ChatHandler struct {
	runner TurnRunner
}

func NewChatHandler(r TurnRunner) *ChatHandler { return &ChatHandler{runner: r} }

// Chat handles GET /chat and streams the answer as server-sent events.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	turn := chat.Turn{
		OwnerID:         auth.OwnerFrom(r.Context()),
		Question:        q.Get("q"),
		ConversationID:  q.Get("conversation_id"),
		SelectedContext: nonBlank(q["selected_context"]),
		TurnID:          q.Get("turn_id"),
	}

	sw, err := sse.NewWriter(w, r)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	err = h.runner.Run(r.Context(), turn, chat.SinkFunc(func(e chat.Event) error {
		return sw.Send(e.Wire())
	}))
	switch {
	case err == nil, errors.Is(err, chat.ErrConsumerGone):
	case !sw.Started():
		respond.WriteErr(w, err)
	default:
		// the terminal error event is already on the stream
		log.Debug().Err(err).Str("ownerId", turn.OwnerID).Msg("chat stream ended with error")
	}
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
