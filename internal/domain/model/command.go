package model

import "strings"

const CommandPrefix = "/"

type Command int

const (
	CommandUnknown Command = iota
	CommandStart
	CommandHelp
	CommandStatus
	CommandBuy
)

// IsCommand reports whether text must be routed as a command.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), CommandPrefix)
}

// ParseCommand extracts the command from "/name@bot args".
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, CommandPrefix) {
		return CommandUnknown
	}
	name := strings.TrimPrefix(strings.Fields(text)[0], CommandPrefix)
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(name) {
	case "start":
		return CommandStart
	case "help":
		return CommandHelp
	case "status":
		return CommandStatus
	case "buy", "subscribe":
		return CommandBuy
	default:
		return CommandUnknown
	}
}

type Button int

const (
	ButtonUnknown Button = iota
	ButtonRecipes
	ButtonCalculator
	ButtonProduct
	ButtonSubscribe
)

// Callback payloads carried by inline buttons.
const (
	PayloadRecipes    = "menu:recipes"
	PayloadCalculator = "menu:calculator"
	PayloadProduct    = "menu:product"
	PayloadSubscribe  = "menu:subscribe"
)

func ParseButton(data string) Button {
	switch strings.TrimSpace(data) {
	case PayloadRecipes:
		return ButtonRecipes
	case PayloadCalculator:
		return ButtonCalculator
	case PayloadProduct:
		return ButtonProduct
	case PayloadSubscribe:
		return ButtonSubscribe
	default:
		return ButtonUnknown
	}
}

func (b Button) Payload() string {
	switch b {
	case ButtonRecipes:
		return PayloadRecipes
	case ButtonCalculator:
		return PayloadCalculator
	case ButtonProduct:
		return PayloadProduct
	case ButtonSubscribe:
		return PayloadSubscribe
	default:
		return ""
	}
}
