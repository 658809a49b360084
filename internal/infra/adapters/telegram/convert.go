package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

// toUpdate converts a raw platform update. Variants outside the allow-list
// come back as UpdateUnsupported so the ingestor can still advance past them.
func toUpdate(u tgbotapi.Update) model.Update {
	out := model.Update{ID: int64(u.UpdateID)}
	switch {
	case u.Message != nil:
		out.Kind = model.UpdateMessage
		out.Message = toMessage(u.Message)
	case u.EditedMessage != nil:
		out.Kind = model.UpdateEditedMessage
		out.Message = toMessage(u.EditedMessage)
	case u.CallbackQuery != nil:
		out.Kind = model.UpdateCallbackQuery
		out.Callback = toCallback(u.CallbackQuery)
	case u.PreCheckoutQuery != nil:
		q := u.PreCheckoutQuery
		out.Kind = model.UpdatePreCheckoutQuery
		out.PreCheckout = &model.PreCheckoutQuery{
			ID:       q.ID,
			Currency: q.Currency,
			Amount:   int64(q.TotalAmount),
			Payload:  q.InvoicePayload,
		}
		if q.From != nil {
			out.PreCheckout.UserID = q.From.ID
		}
	case u.MyChatMember != nil:
		m := u.MyChatMember
		out.Kind = model.UpdateMyChatMember
		out.Membership = &model.MembershipChange{
			ChatID:    m.Chat.ID,
			UserID:    m.From.ID,
			Username:  m.From.UserName,
			OldStatus: m.OldChatMember.Status,
			NewStatus: m.NewChatMember.Status,
		}
	default:
		out.Kind = model.UpdateUnsupported
	}
	return out
}

func toMessage(m *tgbotapi.Message) *model.Message {
	out := &model.Message{MessageID: m.MessageID, Text: m.Text}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
	}
	if m.From != nil {
		out.UserID = m.From.ID
		out.Username = m.From.UserName
		out.LanguageCode = m.From.LanguageCode
	}
	if p := m.SuccessfulPayment; p != nil {
		out.Payment = &model.SuccessfulPayment{
			Currency:         p.Currency,
			Amount:           int64(p.TotalAmount),
			Payload:          p.InvoicePayload,
			TelegramChargeID: p.TelegramPaymentChargeID,
			ProviderChargeID: p.ProviderPaymentChargeID,
		}
	}
	return out
}

func toCallback(q *tgbotapi.CallbackQuery) *model.CallbackQuery {
	out := &model.CallbackQuery{ID: q.ID, Data: q.Data}
	if q.From != nil {
		out.UserID = q.From.ID
	}
	if q.Message != nil {
		out.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			out.ChatID = q.Message.Chat.ID
		}
	}
	// inline-mode callbacks carry no message; answer in the private chat
	if out.ChatID == 0 {
		out.ChatID = out.UserID
	}
	return out
}

func toKeyboard(rows [][]adapter.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		kb = append(kb, btns)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &markup
}

func toEntities(in []adapter.TextEntity) []tgbotapi.MessageEntity {
	if len(in) == 0 {
		return nil
	}
	out := make([]tgbotapi.MessageEntity, 0, len(in))
	for _, e := range in {
		out = append(out, tgbotapi.MessageEntity{Type: e.Type, Offset: e.Offset, Length: e.Length, URL: e.URL})
	}
	return out
}

func toInvoice(p adapter.InvoiceParams, providerToken string) tgbotapi.InvoiceConfig {
	prices := make([]tgbotapi.LabeledPrice, 0, len(p.Prices))
	for _, lp := range p.Prices {
		prices = append(prices, tgbotapi.LabeledPrice{Label: lp.Label, Amount: int(lp.Amount)})
	}
	inv := tgbotapi.NewInvoice(p.ChatID, p.Title, p.Description, p.Payload, providerToken, "", p.Currency, prices)
	// nil is serialized as "null", which the API rejects
	inv.SuggestedTipAmounts = []int{}
	inv.NeedEmail = p.NeedEmail
	inv.SendEmailToProvider = p.NeedEmail
	inv.NeedPhoneNumber = p.NeedPhone
	inv.SendPhoneNumberToProvider = p.NeedPhone
	inv.ProviderData = p.ProviderData
	return inv
}
