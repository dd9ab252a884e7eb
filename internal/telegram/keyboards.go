package telegram

import (
	"github.com/Skotchmaster/laptop_shop/internal/callback"
	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/texts"
)

func button(lang models.Lang, key string, data string) messenger.Button {
	return messenger.Button{Text: texts.T(lang, key), Data: data}
}

func homeKeyboard(lang models.Lang) [][]messenger.Button {
	return messenger.Inline(
		messenger.Row(catalogButton(lang), button(lang, "btn_search", callback.Simple(callback.Search))),
		messenger.Row(button(lang, "btn_ai", callback.Simple(callback.AIConsult)), button(lang, "btn_favorites", callback.Simple(callback.MyFavorites))),
		messenger.Row(button(lang, "btn_my_orders", callback.Simple(callback.MyOrders)), button(lang, "btn_how_order", callback.Simple(callback.OrderStart))),
		messenger.Row(button(lang, "btn_faq", callback.Simple(callback.FAQ)), button(lang, "btn_contacts", callback.Simple(callback.Contacts))),
		messenger.Row(button(lang, "btn_settings", callback.Simple(callback.Settings))),
	)
}

func catalogButton(lang models.Lang) messenger.Button {
	return button(lang, "btn_catalog", callback.Simple(callback.Catalog))
}

func homeRow(lang models.Lang) []messenger.Button {
	return messenger.Row(button(lang, "btn_home", callback.Simple(callback.Home)))
}

func categoriesKeyboard(lang models.Lang) [][]messenger.Button {
	var rows [][]messenger.Button
	for _, c := range models.Categories() {
		rows = append(rows, messenger.Row(messenger.Button{Text: c.Label(), Data: callback.CategoryData(c)}))
	}
	return append(rows, homeRow(lang))
}

// productListKeyboard lists one product per row, followed by the extra rows.
func productListKeyboard(lang models.Lang, items []models.Product, extra ...[]messenger.Button) [][]messenger.Button {
	rows := make([][]messenger.Button, 0, len(items)+len(extra))
	for _, p := range items {
		rows = append(rows, messenger.Row(messenger.Button{
			Text: productListLabel(lang, p),
			Data: callback.WithID(callback.Product, p.ID),
		}))
	}
	return append(rows, extra...)
}

func productListLabel(lang models.Lang, p models.Product) string {
	if p.InStock() {
		return texts.T(lang, "product_list_in", p.Title, texts.Price(p.Price), p.Stock)
	}
	return texts.T(lang, "product_list_out", p.Title, texts.Price(p.Price))
}

func sortRow(lang models.Lang, c models.Category) []messenger.Button {
	return messenger.Row(
		button(lang, "sort_cheaper", callback.ProductsData(c, "price_asc")),
		button(lang, "sort_dearer", callback.ProductsData(c, "price_desc")),
		button(lang, "sort_name", callback.ProductsData(c, "title_asc")),
	)
}

func productKeyboard(lang models.Lang, p *models.Product, favorite, admin bool) [][]messenger.Button {
	var rows [][]messenger.Button
	if p.InStock() {
		rows = append(rows, messenger.Row(button(lang, "btn_order_product", callback.WithID(callback.OrderProduct, p.ID))))
	} else {
		rows = append(rows, messenger.Row(button(lang, "btn_notify_stock", callback.WithID(callback.NotifyStock, p.ID))))
	}

	favKey := "btn_add_favorite"
	if favorite {
		favKey = "btn_remove_favorite"
	}
	rows = append(rows, messenger.Row(button(lang, favKey, callback.WithID(callback.ToggleFavorite, p.ID))))

	if admin {
		rows = append(rows, messenger.Row(button(lang, "btn_delete_product", callback.WithID(callback.DeleteProduct, p.ID))))
	}
	return append(rows, messenger.Row(
		button(lang, "btn_back", callback.ProductsData(p.Category, callback.DefaultSort)),
		button(lang, "btn_back_catalog", callback.Simple(callback.Catalog)),
	))
}

func settingsKeyboard(lang models.Lang) [][]messenger.Button {
	return messenger.Inline(
		messenger.Row(
			messenger.Button{Text: "🇷🇺 Русский", Data: callback.LangData(models.LangRU)},
			messenger.Button{Text: "🇹🇯 Тоҷикӣ", Data: callback.LangData(models.LangTG)},
		),
		homeRow(lang),
	)
}
