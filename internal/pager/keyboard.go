package pager

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	tokens "github.com/hryarih32/mediacatalogbot/pkg/models"
)

// NavRow returns the [◀] [p/P] [▶] row for a paginated surface, or nil
// when there is a single page
func NavRow(surface string, number, total int) []models.InlineKeyboardButton {
	if total <= 1 {
		return nil
	}

	row := make([]models.InlineKeyboardButton, 0, 3)
	if number > 1 {
		row = append(row, models.InlineKeyboardButton{Text: "◀", CallbackData: tokens.PageToken(surface, number-1)})
	}
	row = append(row, models.InlineKeyboardButton{Text: fmt.Sprintf("%d/%d", number, total), CallbackData: tokens.CallbackNoop})
	if number < total {
		row = append(row, models.InlineKeyboardButton{Text: "▶", CallbackData: tokens.PageToken(surface, number+1)})
	}
	return row
}

// Controls returns the navigation row followed by a refresh and back row
func Controls(surface string, number, total int, back string) [][]models.InlineKeyboardButton {
	var rows [][]models.InlineKeyboardButton
	if nav := NavRow(surface, number, total); nav != nil {
		rows = append(rows, nav)
	}
	return append(rows, []models.InlineKeyboardButton{
		{Text: "🔄 Refresh", CallbackData: tokens.RefreshToken(surface, number)},
		{Text: "⬅️ Back", CallbackData: back},
	})
}
