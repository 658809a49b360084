package model

import "time"

type PersonaMode string

const (
	PersonaChef    PersonaMode = "chef"
	PersonaCalc    PersonaMode = "calc"
	PersonaProduct PersonaMode = "product"
)

type PendingState string

const (
	PendingNone         PendingState = "none"
	PendingCalcInput    PendingState = "awaiting_calc_input"
	PendingProductInput PendingState = "awaiting_product_input"
)

// ConversationContext is the per-chat routing state.
type ConversationContext struct {
	ChatID    int64        `json:"chat_id"`
	Persona   PersonaMode  `json:"persona"`
	Pending   PendingState `json:"pending"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewConversationContext returns the state a chat starts in.
func NewConversationContext(chatID int64) *ConversationContext {
	return &ConversationContext{ChatID: chatID, Persona: PersonaChef, Pending: PendingNone}
}

// Normalize maps unknown or empty values back to the defaults.
func (c *ConversationContext) Normalize() {
	switch c.Persona {
	case PersonaChef, PersonaCalc, PersonaProduct:
	default:
		c.Persona = PersonaChef
	}
	switch c.Pending {
	case PendingNone, PendingCalcInput, PendingProductInput:
	default:
		c.Pending = PendingNone
	}
}

// Set moves the context to a new persona/pending pair.
func (c *ConversationContext) Set(p PersonaMode, s PendingState) {
	c.Persona = p
	c.Pending = s
	c.UpdatedAt = time.Now()
}
