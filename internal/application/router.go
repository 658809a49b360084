package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/adapter"
	"telegram-nutrition-bot/internal/domain/ports/repository"
	"telegram-nutrition-bot/internal/infra/logging"
	"telegram-nutrition-bot/internal/infra/metrics"
	"telegram-nutrition-bot/internal/usecase"
)

var (
	_ Dispatcher               = (*Router)(nil)
	_ usecase.ReminderNotifier = (*Router)(nil)
)

const (
	dateLayout    = "02.01.2006 15:04"
	// longest server-requested pause honored inline before giving up
	maxRetryAfter = 5 * time.Second
)

type RouterConfig struct {
	AdminIDs    []int64
	FloodLimit  int
	FloodWindow time.Duration
	Location    *time.Location

	PriceMinor int64
	Currency   string
	Days       int
	NeedEmail  bool
	NeedPhone  bool
	Receipt    bool
	VATCode    int

	// Dev logs user text unredacted.
	Dev bool
}

type RouterDeps struct {
	Conversations repository.ConversationRepository
	Usage         usecase.UsageUseCase
	Subscriptions usecase.SubscriptionUseCase
	Payments      usecase.PaymentUseCase
	Users         usecase.UserUseCase
	Backend       adapter.GenerativeBackend
	Messenger     adapter.Messenger
	Translator    Translator
	Flood         FloodLimiter // optional
}

// Router is the per-chat state machine over persona and pending input. It
// owns every outbound reply for an update.
type Router struct {
	RouterDeps
	cfg    RouterConfig
	admins map[int64]struct{}
	sleep  func(ctx context.Context, d time.Duration) error
	log    *zerolog.Logger
}

func NewRouter(deps RouterDeps, cfg RouterConfig, logger *zerolog.Logger) *Router {
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FloodWindow <= 0 {
		cfg.FloodWindow = time.Minute
	}
	l := logger.With().Str("component", "ConversationRouter").Logger()
	return &Router{
		RouterDeps: deps,
		cfg:        cfg,
		admins:     admins,
		sleep:      sleepCtx,
		log:        &l,
	}
}

func (r *Router) isAdmin(userID int64) bool {
	_, ok := r.admins[userID]
	return ok
}

// Dispatch routes one update by kind. The switch is exhaustive over
// model.UpdateKind.
func (r *Router) Dispatch(ctx context.Context, u model.Update) DispatchResult {
	switch u.Kind {
	case model.UpdateMessage, model.UpdateEditedMessage:
		if u.Message == nil {
			return ignored()
		}
		return resultOf(r.HandleMessage(ctx, u.Message))
	case model.UpdateCallbackQuery:
		if u.Callback == nil {
			return ignored()
		}
		return resultOf(r.HandleCallback(ctx, u.Callback))
	case model.UpdatePreCheckoutQuery:
		if u.PreCheckout == nil {
			return ignored()
		}
		return resultOf(r.HandlePreCheckout(ctx, u.PreCheckout))
	case model.UpdateMyChatMember:
		if u.Membership == nil {
			return ignored()
		}
		return resultOf(r.Users.HandleMembership(ctx, u.Membership))
	case model.UpdateUnsupported:
		return ignored()
	default:
		return ignored()
	}
}

func (r *Router) HandleMessage(ctx context.Context, m *model.Message) error {
	if m.Payment != nil {
		return r.handleSuccessfulPayment(ctx, m)
	}
	if err := r.Users.Touch(ctx, m); err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("user touch failed")
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return r.send(ctx, m.ChatID, r.Translator.T("text.only"), nil)
	}
	if !r.allowFlood(ctx, m.UserID) {
		return r.send(ctx, m.ChatID, r.Translator.T("flood.slow_down"), nil)
	}
	// commands win over any pending input
	if model.IsCommand(text) {
		return r.handleCommand(ctx, m, model.ParseCommand(text))
	}

	conv, err := r.load(ctx, m.ChatID)
	if err != nil {
		return err
	}
	persona := conv.Persona
	switch conv.Pending {
	case model.PendingCalcInput:
		persona = model.PersonaCalc
	case model.PendingProductInput:
		persona = model.PersonaProduct
	case model.PendingNone:
	}
	if conv.Pending != model.PendingNone {
		// reset before answering so a failed turn does not leave the chat stuck
		conv.Set(persona, model.PendingNone)
		if err := r.Conversations.Save(ctx, conv); err != nil {
			return err
		}
	}
	return r.answer(ctx, m.ChatID, m.UserID, persona, text)
}

func (r *Router) handleCommand(ctx context.Context, m *model.Message, cmd model.Command) error {
	switch cmd {
	case model.CommandStart:
		conv := model.NewConversationContext(m.ChatID)
		conv.Set(model.PersonaChef, model.PendingNone)
		if err := r.Conversations.Save(ctx, conv); err != nil {
			return err
		}
		return r.send(ctx, m.ChatID, r.Translator.T("menu.intro"), r.mainMenu())
	case model.CommandHelp:
		return r.send(ctx, m.ChatID, r.Translator.T("help"), nil)
	case model.CommandStatus:
		return r.send(ctx, m.ChatID, r.statusText(ctx, m.UserID), nil)
	case model.CommandBuy:
		return r.startPurchase(ctx, m.ChatID, m.UserID)
	case model.CommandUnknown:
		return r.send(ctx, m.ChatID, r.Translator.T("unknown.command"), nil)
	default:
		return r.send(ctx, m.ChatID, r.Translator.T("unknown.command"), nil)
	}
}

// HandleCallback acknowledges the click and removes the originating keyboard
// before anything else is sent.
func (r *Router) HandleCallback(ctx context.Context, q *model.CallbackQuery) error {
	log := logging.With(ctx, r.log)
	if err := r.Messenger.AnswerCallback(ctx, q.ID); err != nil {
		log.Warn().Err(err).Msg("answer callback failed")
	}
	if q.MessageID != 0 {
		if err := r.Messenger.ClearInlineKeyboard(ctx, q.ChatID, q.MessageID); err != nil {
			log.Warn().Err(err).Msg("clear keyboard failed")
		}
	}
	if !r.allowFlood(ctx, q.UserID) {
		return r.send(ctx, q.ChatID, r.Translator.T("flood.slow_down"), nil)
	}

	var (
		persona model.PersonaMode
		pending model.PendingState
		prompt  string
	)
	switch model.ParseButton(q.Data) {
	case model.ButtonRecipes:
		persona, pending, prompt = model.PersonaChef, model.PendingNone, "prompt.recipes"
	case model.ButtonCalculator:
		persona, pending, prompt = model.PersonaCalc, model.PendingCalcInput, "prompt.calculator"
	case model.ButtonProduct:
		persona, pending, prompt = model.PersonaProduct, model.PendingProductInput, "prompt.product"
	case model.ButtonSubscribe:
		return r.startPurchase(ctx, q.ChatID, q.UserID)
	case model.ButtonUnknown:
		log.Info().Str("data", logging.Redact(q.Data, r.cfg.Dev)).Msg("unknown button payload")
		return r.send(ctx, q.ChatID, r.Translator.T("unknown.action"), nil)
	default:
		return r.send(ctx, q.ChatID, r.Translator.T("unknown.action"), nil)
	}

	conv, err := r.load(ctx, q.ChatID)
	if err != nil {
		return err
	}
	conv.Set(persona, pending)
	if err := r.Conversations.Save(ctx, conv); err != nil {
		return err
	}
	return r.send(ctx, q.ChatID, r.Translator.T(prompt), nil)
}

// HandlePreCheckout answers the platform with the pipeline's verdict.
func (r *Router) HandlePreCheckout(ctx context.Context, q *model.PreCheckoutQuery) error {
	v := r.Payments.ValidatePreCheckout(ctx, *q)
	msg := ""
	if !v.OK {
		msg = r.Translator.T(v.UserMessage)
	}
	return r.Messenger.AnswerPreCheckout(ctx, q.ID, v.OK, msg)
}

// NotifyExpiring sends a subscription reminder. Private chats share the
// user's id.
func (r *Router) NotifyExpiring(ctx context.Context, userID int64, kind model.ReminderKind, until time.Time) error {
	return r.send(ctx, userID, r.Translator.T("reminder."+string(kind), r.formatTime(until)), r.subscribeButton())
}

func (r *Router) handleSuccessfulPayment(ctx context.Context, m *model.Message) error {
	log := logging.With(ctx, r.log).With().Str("payload", m.Payment.Payload).Logger()

	won, intent, err := r.Payments.HandleSuccessfulPayment(ctx, m.UserID, *m.Payment)
	if err != nil {
		return err
	}
	if !won {
		if intent != nil && intent.Status == model.PurchasePaid {
			return nil
		}
		return r.send(ctx, m.ChatID, r.Translator.T("payment.failed"), nil)
	}

	until, err := r.Subscriptions.GrantDays(ctx, intent.UserID, intent.Days)
	if err != nil {
		// the intent is PAID already; an operator grants through the admin API
		log.Error().Err(err).Int64("tg_id", intent.UserID).Int("days", intent.Days).Msg("grant after payment failed")
		return err
	}
	return r.send(ctx, m.ChatID, r.Translator.T("payment.confirmed", r.formatTime(until)), nil)
}

func (r *Router) startPurchase(ctx context.Context, chatID, userID int64) error {
	if !r.Payments.Enabled() {
		return r.send(ctx, chatID, r.Translator.T("payments.unavailable"), nil)
	}
	intent := &model.PurchaseIntent{
		Payload:     r.Payments.NewPayload(userID),
		UserID:      userID,
		ChatID:      chatID,
		AmountMinor: r.cfg.PriceMinor,
		Currency:    r.cfg.Currency,
		Days:        r.cfg.Days,
		Status:      model.PurchaseInvoice,
	}
	if err := r.Payments.RegisterInvoice(ctx, intent); err != nil {
		if errors.Is(err, domain.ErrPaymentsDisabled) {
			return r.send(ctx, chatID, r.Translator.T("payments.unavailable"), nil)
		}
		_ = r.send(ctx, chatID, r.Translator.T("error.generic"), nil)
		return err
	}

	label := r.Translator.T("invoice.label", r.cfg.Days)
	params := adapter.InvoiceParams{
		ChatID:      chatID,
		Title:       r.Translator.T("invoice.title"),
		Description: r.Translator.T("invoice.description", r.cfg.Days),
		Payload:     intent.Payload,
		Currency:    r.cfg.Currency,
		Prices:      []adapter.LabeledPrice{{Label: label, Amount: r.cfg.PriceMinor}},
		NeedEmail:   r.cfg.NeedEmail,
		NeedPhone:   r.cfg.NeedPhone,
	}
	if r.cfg.Receipt {
		data, err := receiptProviderData(label, r.cfg.PriceMinor, r.cfg.Currency, r.cfg.VATCode)
		if err != nil {
			return err
		}
		params.ProviderData = data
	}
	if err := r.Messenger.SendInvoice(ctx, params); err != nil {
		if errors.Is(err, domain.ErrPaymentsDisabled) {
			return r.send(ctx, chatID, r.Translator.T("payments.unavailable"), nil)
		}
		return err
	}
	return nil
}

// answer spends one turn and asks the backend in the given persona.
func (r *Router) answer(ctx context.Context, chatID, userID int64, persona model.PersonaMode, text string) error {
	ok, err := r.Usage.Consume(ctx, userID, r.isAdmin(userID))
	if err != nil {
		_ = r.send(ctx, chatID, r.Translator.T("error.generic"), nil)
		return err
	}
	if !ok {
		return r.send(ctx, chatID, r.Translator.T("limit.reached"), r.subscribeButton())
	}

	logging.With(ctx, r.log).Debug().Str("persona", string(persona)).
		Str("text", logging.Redact(text, r.cfg.Dev)).Msg("backend turn")
	reply := r.Backend.Complete(ctx, []adapter.Message{
		{Role: "system", Content: r.Translator.T(personaPromptKey(persona))},
		{Role: "user", Content: text},
	})
	return r.send(ctx, chatID, reply, nil)
}

func personaPromptKey(p model.PersonaMode) string {
	switch p {
	case model.PersonaCalc:
		return "persona.calc"
	case model.PersonaProduct:
		return "persona.product"
	case model.PersonaChef:
		return "persona.chef"
	default:
		return "persona.chef"
	}
}

func (r *Router) statusText(ctx context.Context, userID int64) string {
	if g, err := r.Subscriptions.Get(ctx, userID); err == nil && g.IsActive(time.Now()) {
		return r.Translator.T("status.subscribed", r.formatTime(g.Until))
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, r.log).Warn().Err(err).Msg("subscription lookup failed")
	}
	if r.isAdmin(userID) {
		u := r.Translator.T("status.unlimited")
		return r.Translator.T("status.free", u, u)
	}
	daily, total, err := r.Usage.Remaining(ctx, userID)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("usage lookup failed")
		return r.Translator.T("error.generic")
	}
	return r.Translator.T("status.free", r.formatCount(daily), r.formatCount(total))
}

func (r *Router) formatCount(n int) string {
	if n == model.Unlimited {
		return r.Translator.T("status.unlimited")
	}
	return strconv.Itoa(n)
}

func (r *Router) formatTime(t time.Time) string {
	return t.In(r.cfg.Location).Format(dateLayout)
}

func (r *Router) load(ctx context.Context, chatID int64) (*model.ConversationContext, error) {
	conv, err := r.Conversations.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.NewConversationContext(chatID), nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// allowFlood fails open on limiter errors.
func (r *Router) allowFlood(ctx context.Context, userID int64) bool {
	if r.Flood == nil || r.cfg.FloodLimit <= 0 || r.isAdmin(userID) {
		return true
	}
	ok, err := r.Flood.Allow(ctx, floodKey(userID), r.cfg.FloodLimit, r.cfg.FloodWindow)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("flood limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncFloodBlocked()
	}
	return ok
}

func floodKey(userID int64) string {
	return "flood:" + strconv.FormatInt(userID, 10)
}

func (r *Router) mainMenu() [][]adapter.Button {
	t := r.Translator
	return [][]adapter.Button{
		{{Text: t.T("menu.btn.recipes"), Data: model.ButtonRecipes.Payload()}},
		{{Text: t.T("menu.btn.calculator"), Data: model.ButtonCalculator.Payload()}},
		{{Text: t.T("menu.btn.product"), Data: model.ButtonProduct.Payload()}},
		{{Text: t.T("menu.btn.subscribe"), Data: model.ButtonSubscribe.Payload()}},
	}
}

func (r *Router) subscribeButton() [][]adapter.Button {
	return [][]adapter.Button{{{Text: r.Translator.T("menu.btn.subscribe"), Data: model.ButtonSubscribe.Payload()}}}
}

// send delivers one message, honoring a short retry-after once.
func (r *Router) send(ctx context.Context, chatID int64, text string, kb [][]adapter.Button) error {
	p := adapter.SendMessageParams{ChatID: chatID, Text: text, Keyboard: kb}
	_, err := r.Messenger.SendMessage(ctx, p)
	var ra *domain.RetryAfterError
	if errors.As(err, &ra) && ra.After <= maxRetryAfter {
		if err := r.sleep(ctx, ra.After); err != nil {
			return err
		}
		_, err = r.Messenger.SendMessage(ctx, p)
	}
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
