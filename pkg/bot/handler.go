// Package bot implements the chat commands. It is transport agnostic:
// a Replier delivers the answers and a Searcher fetches upstream data.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sternrassler/dinkelberg/pkg/cache"
	"github.com/Sternrassler/dinkelberg/pkg/ddg"
)

// Reply texts.
const (
	MsgNoImageQuery  = "Please provide an image query"
	MsgNoImage       = "No image found"
	MsgFetchFirst    = "You have to fetch images first"
	MsgDontKnow      = "I don't know 🤔"
	MsgWentWrong     = "Something went wrong..."
	MsgCacheHealthy  = "Cache: healthy"
	MsgCacheSick     = "Cache: unhealthy"
	BodegemLatitude  = 50.8614773
	BodegemLongitude = 4.211304
)

// ErrUnknownCommand is returned for commands the bot does not support.
var ErrUnknownCommand = errors.New("unknown command")

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dinkelberg_commands_total",
	Help: "Total handled commands by name and outcome",
}, []string{"command", "outcome"})

var tracer = otel.Tracer("github.com/Sternrassler/dinkelberg/pkg/bot")

// ChatID identifies a conversation. Scoped cache state is keyed by it.
type ChatID int64

// String implements fmt.Stringer; cache keys use the decimal form.
func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Replier delivers answers to the chat a command came from.
type Replier interface {
	Text(ctx context.Context, text string) error
	Photo(ctx context.Context, url string) error
	Location(ctx context.Context, latitude, longitude float64) error
}

// Searcher fetches upstream data for the commands.
type Searcher interface {
	SearchImages(ctx context.Context, query string) (ddg.ImageResponse, error)
	WikiLookup(ctx context.Context, query string) (string, error)
}

// Handler dispatches commands.
type Handler struct {
	search Searcher
	cache  *cache.Store
	logger zerolog.Logger
	roll   func() int
}

// NewHandler creates a handler. store may be nil; /more then never finds
// previous results.
func NewHandler(search Searcher, store *cache.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		search: search,
		cache:  store,
		logger: logger.With().Str("component", "bot").Logger(),
		roll:   randomRoll,
	}
}

// Handle runs cmd for chat and sends the answers through r.
func (h *Handler) Handle(ctx context.Context, chat ChatID, cmd Command, r Replier) (err error) {
	ctx, span := tracer.Start(ctx, "bot."+cmd.Name, trace.WithAttributes(
		attribute.String("bot.command", cmd.Name),
		attribute.Int64("bot.chat_id", int64(chat)),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if cmd.Known() {
			commandsTotal.WithLabelValues(cmd.Name, outcome).Inc()
		}
		span.End()
	}()

	h.logger.Debug().
		Stringer("chat_id", chat).
		Str("command", cmd.Name).
		Msg("Incoming command")

	switch cmd.Name {
	case "help":
		return r.Text(ctx, Descriptions())
	case "img":
		return h.image(ctx, chat, cmd.Args, r)
	case "more":
		return h.more(ctx, chat, r)
	case "what":
		return h.what(ctx, cmd.Args, r)
	case "health":
		return h.health(ctx, r)
	case "roll":
		return h.rollDice(ctx, r)
	case "bodegem":
		return r.Location(ctx, BodegemLatitude, BodegemLongitude)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
}

func (h *Handler) image(ctx context.Context, chat ChatID, query string, r Replier) error {
	if query == "" {
		return r.Text(ctx, MsgNoImageQuery)
	}

	images, err := h.search.SearchImages(ctx, query)
	if err != nil {
		return fmt.Errorf("search images: %w", err)
	}

	cache.SetScoped(ctx, h.cache, chat, images)
	return h.sendRandom(ctx, images, r)
}

func (h *Handler) more(ctx context.Context, chat ChatID, r Replier) error {
	images, ok := cache.GetScoped[ddg.ImageResponse](ctx, h.cache, chat)
	if !ok {
		return r.Text(ctx, MsgFetchFirst)
	}
	return h.sendRandom(ctx, images, r)
}

func (h *Handler) sendRandom(ctx context.Context, images ddg.ImageResponse, r Replier) error {
	img, ok := images.Random()
	if !ok {
		return r.Text(ctx, MsgNoImage)
	}
	return r.Photo(ctx, img.ImageURL())
}

func (h *Handler) what(ctx context.Context, query string, r Replier) error {
	if query == "" {
		return r.Text(ctx, MsgDontKnow)
	}

	answer, err := h.search.WikiLookup(ctx, query)
	switch {
	case err == nil:
		return r.Text(ctx, answer)
	case errors.Is(err, ddg.ErrEmptyResponse):
		return r.Text(ctx, MsgDontKnow)
	default:
		h.logger.Error().Err(err).Str("query", query).Msg("DuckDuckGo error")
		return r.Text(ctx, MsgWentWrong)
	}
}

func (h *Handler) health(ctx context.Context, r Replier) error {
	if h.cache.Status(ctx).IsHealthy() {
		return r.Text(ctx, MsgCacheHealthy)
	}
	return r.Text(ctx, MsgCacheSick)
}

func (h *Handler) rollDice(ctx context.Context, r Replier) error {
	roll := h.roll()
	h.logger.Trace().Int("roll", roll).Stringer("outcome", outcomeOf(roll)).Msg("Roll")
	return r.Text(ctx, formatRoll(roll))
}
