package model

// UpdateKind is the closed set of inbound update variants the bot consumes.
type UpdateKind int

const (
	UpdateUnsupported UpdateKind = iota
	UpdateMessage
	UpdateEditedMessage
	UpdateCallbackQuery
	UpdatePreCheckoutQuery
	UpdateMyChatMember
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateMessage:
		return "message"
	case UpdateEditedMessage:
		return "edited_message"
	case UpdateCallbackQuery:
		return "callback_query"
	case UpdatePreCheckoutQuery:
		return "pre_checkout_query"
	case UpdateMyChatMember:
		return "my_chat_member"
	default:
		return "unsupported"
	}
}

// AllowedUpdates is the allow-list sent with every fetch.
var AllowedUpdates = []string{
	UpdateMessage.String(),
	UpdateEditedMessage.String(),
	UpdateCallbackQuery.String(),
	UpdatePreCheckoutQuery.String(),
	UpdateMyChatMember.String(),
}

// Update is a transport-neutral inbound event. Exactly one payload field is
// set, matching Kind.
type Update struct {
	ID          int64
	Kind        UpdateKind
	Message     *Message
	Callback    *CallbackQuery
	PreCheckout *PreCheckoutQuery
	Membership  *MembershipChange
}

// UserID returns the sender of the update, or 0 when unknown.
func (u Update) UserID() int64 {
	switch u.Kind {
	case UpdateMessage, UpdateEditedMessage:
		if u.Message != nil {
			return u.Message.UserID
		}
	case UpdateCallbackQuery:
		if u.Callback != nil {
			return u.Callback.UserID
		}
	case UpdatePreCheckoutQuery:
		if u.PreCheckout != nil {
			return u.PreCheckout.UserID
		}
	case UpdateMyChatMember:
		if u.Membership != nil {
			return u.Membership.UserID
		}
	}
	return 0
}

// ChatID returns the chat the update belongs to, or 0 for pre-checkout
// queries, which carry none.
func (u Update) ChatID() int64 {
	switch u.Kind {
	case UpdateMessage, UpdateEditedMessage:
		if u.Message != nil {
			return u.Message.ChatID
		}
	case UpdateCallbackQuery:
		if u.Callback != nil {
			return u.Callback.ChatID
		}
	case UpdateMyChatMember:
		if u.Membership != nil {
			return u.Membership.ChatID
		}
	}
	return 0
}

type Message struct {
	MessageID    int
	ChatID       int64
	UserID       int64
	Username     string
	LanguageCode string
	Text         string
	Payment      *SuccessfulPayment // set on service messages confirming a payment
}

type CallbackQuery struct {
	ID        string
	ChatID    int64
	MessageID int
	UserID    int64
	Data      string
}

type PreCheckoutQuery struct {
	ID       string
	UserID   int64
	Currency string
	Amount   int64 // minor units
	Payload  string
}

type SuccessfulPayment struct {
	Currency         string
	Amount           int64 // minor units
	Payload          string
	TelegramChargeID string
	ProviderChargeID string
}

type MembershipChange struct {
	ChatID    int64
	UserID    int64
	Username  string
	OldStatus string
	NewStatus string
}
