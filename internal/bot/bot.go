// Package bot is the Telegram front end of the market.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"phonemarket-bot/internal/config"
	"phonemarket-bot/internal/keylock"
	"phonemarket-bot/internal/market"
	"phonemarket-bot/internal/session"
	"phonemarket-bot/pkg/uid"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler turns Telegram updates into market calls.
type Handler struct {
	sender  Sender
	market  *market.Service
	log     zerolog.Logger
	locks   *keylock.Manager
	limiter *userLimiter
	render  *renderer
}

// NewHandler creates a handler.
func NewHandler(sender Sender, svc *market.Service, logger zerolog.Logger, rl config.RateLimitConfig) *Handler {
	return &Handler{
		sender:  sender,
		market:  svc,
		log:     logger.With().Str("component", "bot").Logger(),
		locks:   keylock.New(0),
		limiter: newUserLimiter(rl.PerSecond, rl.Burst),
		render:  newRenderer(svc.Catalog(), svc.Config().Cycle.Location),
	}
}

// Run long-polls Telegram until ctx is cancelled, then waits for in-flight updates.
func Run(ctx context.Context, api *tgbotapi.BotAPI, h *Handler, pollTimeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := api.GetUpdatesChan(u)

	h.log.Info().Str("username", api.Self.UserName).Msg("polling for updates")

	var wg sync.WaitGroup
	defer wg.Wait()
	// handlers finish their database work even while shutting down
	handleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			h.log.Info().Msg("stopped polling")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.HandleUpdate(handleCtx, upd)
			}()
		}
	}
}

// HandleUpdate processes one update. Updates from the same user in the same
// chat are handled one at a time.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	logger := h.log.With().
		Str("trace_id", uid.New()).
		Int("update_id", upd.UpdateID).
		Int64("user_id", msg.From.ID).
		Int64("chat_id", msg.Chat.ID).
		Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("update handler panicked")
			h.send(ctx, msg.Chat.ID, "⚠️ Something went wrong. Try again.")
		}
	}()

	if ok, warn := h.limiter.Allow(msg.From.ID); !ok {
		// a yes/no answer to a pending dialog is never dropped
		if msg.IsCommand() || !market.IsReplyWord(msg.Text) {
			logger.Debug().Bool("warned", warn).Msg("rate limited")
			if warn {
				h.send(ctx, msg.Chat.ID, "⏳ Slow down a little, you are sending messages too fast.")
			}
			return
		}
	}

	key := session.Key{UserID: msg.From.ID, ChatID: msg.Chat.ID}
	unlock := h.locks.Lock(key.String())
	defer unlock()

	start := time.Now()
	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
	} else {
		h.handleText(ctx, msg)
	}
	logger.Debug().Dur("took", time.Since(start)).Msg("update handled")
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.send(ctx, chatID, helpText)
	case "balance":
		u, err := h.market.User(ctx, userID)
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.send(ctx, chatID, "💰 Balance: "+h.render.money(u.Balance))
	case "inventory":
		items, err := h.market.Inventory(ctx, userID)
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.send(ctx, chatID, h.render.inventory(items))
	case "bm", "blackmarket":
		offers, err := h.market.VisibleOffers(ctx, userID)
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.send(ctx, chatID, h.render.offers(offers, h.market.NextRefresh()))
	case "bm_buy", "buy":
		slot, err := strconv.Atoi(args)
		if err != nil {
			h.send(ctx, chatID, "Usage: /bm_buy <slot number>")
			return
		}
		quote, err := h.market.RequestPurchase(ctx, userID, chatID, slot)
		if err != nil {
			h.sendError(ctx, chatID, err)
			return
		}
		h.send(ctx, chatID, h.render.quote(quote, h.market.Config().ConfirmTimeout))
	default:
		h.send(ctx, chatID, "Unknown command. See /help")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	u, created, err := h.market.Register(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		h.sendError(ctx, msg.Chat.ID, err)
		return
	}
	if created {
		h.send(ctx, msg.Chat.ID, fmt.Sprintf("👋 Welcome to the market! Here is %s to get you started.\n\n%s",
			h.render.money(u.Balance), helpText))
		return
	}
	h.send(ctx, msg.Chat.ID, "👋 Welcome back! Balance: "+h.render.money(u.Balance))
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	reply, err := h.market.HandleReply(ctx, msg.From.ID, msg.Chat.ID, msg.Text)
	if err != nil {
		h.sendError(ctx, msg.Chat.ID, err)
		return
	}
	if reply.Outcome == market.OutcomeNotPending {
		return
	}
	h.send(ctx, msg.Chat.ID, h.render.reply(reply))
}

func (h *Handler) sendError(ctx context.Context, chatID int64, err error) {
	var e market.Error
	if !errors.As(err, &e) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
		h.send(ctx, chatID, "⚠️ Something went wrong. Try again later.")
		return
	}
	h.send(ctx, chatID, "❌ "+capitalize(userMessage(err)))
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	if _, err := h.sender.Send(m); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to send message")
	}
}
