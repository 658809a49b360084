package application

import (
	"encoding/json"
	"fmt"
)

type receiptAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type receiptItem struct {
	Description string        `json:"description"`
	Quantity    string        `json:"quantity"`
	Amount      receiptAmount `json:"amount"`
	VATCode     int           `json:"vat_code"`
}

type receipt struct {
	Items []receiptItem `json:"items"`
}

// receiptProviderData renders the fiscal receipt some providers require in
// the invoice provider_data field.
func receiptProviderData(description string, amountMinor int64, currency string, vatCode int) (string, error) {
	if vatCode <= 0 {
		vatCode = 1
	}
	b, err := json.Marshal(map[string]receipt{
		"receipt": {Items: []receiptItem{{
			Description: description,
			Quantity:    "1.00",
			Amount:      receiptAmount{Value: formatMinor(amountMinor), Currency: currency},
			VATCode:     vatCode,
		}}},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
