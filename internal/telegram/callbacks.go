package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/callback"
	"github.com/Skotchmaster/laptop_shop/internal/conversation"
	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/texts"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

const (
	myOrdersLimit = 10
	captionLimit  = 1024
)

// press is a decoded button press together with where it came from.
type press struct {
	userID    int64
	chatID    int64
	messageID int // 0 when the source message cannot be edited as text
	lang      models.Lang
	cmd       callback.Command
}

func (r *Router) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	cmd, err := callback.Parse(cq.Data)
	if err != nil {
		logging.FromContext(ctx).Debug("unknown_callback", "data", cq.Data)
		return r.Msg.AnswerCallback(ctx, cq.ID, "")
	}

	p := press{userID: cq.From.ID, chatID: cq.From.ID, lang: r.Repo.UserLang(ctx, cq.From.ID), cmd: cmd}
	if m := cq.Message; m != nil {
		p.chatID = m.Chat.ID
		if m.Text != "" {
			p.messageID = m.MessageID
		}
	}

	answer, err := r.dispatch(ctx, p)
	if aerr := r.Msg.AnswerCallback(ctx, cq.ID, answer); aerr != nil {
		logging.FromContext(ctx).Debug("answer_callback_failed", "error", aerr)
	}
	return err
}

// dispatch runs the action and returns the short notice shown on the button press.
func (r *Router) dispatch(ctx context.Context, p press) (string, error) {
	lang := p.lang
	switch p.cmd.Kind {
	case callback.Home:
		return "", r.show(ctx, p, texts.T(lang, "main_menu"), homeKeyboard(lang))
	case callback.Catalog:
		return "", r.showCatalog(ctx, p.chatID, p.messageID, lang)
	case callback.FAQ:
		return "", r.show(ctx, p, texts.T(lang, "faq"), messenger.Inline(homeRow(lang)))
	case callback.Contacts:
		text, kb := r.contacts(lang)
		return "", r.show(ctx, p, text, kb)
	case callback.Settings:
		return "", r.show(ctx, p, texts.T(lang, "settings"), settingsKeyboard(lang))
	case callback.SetLang:
		if err := r.Repo.SetUserLang(ctx, p.userID, p.cmd.Lang); err != nil {
			return "", err
		}
		return texts.T(p.cmd.Lang, "lang_changed"), r.show(ctx, p, texts.T(p.cmd.Lang, "main_menu"), homeKeyboard(p.cmd.Lang))

	case callback.Search:
		r.States.Start(p.userID, conversation.FlowSearch, conversation.Data{})
		return "", r.say(ctx, p.chatID, texts.T(lang, "search_prompt"))
	case callback.AIConsult:
		return "", r.startConsult(ctx, p.userID, lang)
	case callback.MyFavorites:
		return "", r.showFavorites(ctx, p)

	case callback.Category:
		return "", r.showProducts(ctx, p, p.cmd.Category, callback.DefaultSort)
	case callback.Products:
		return "", r.showProducts(ctx, p, p.cmd.Category, p.cmd.Sort)
	case callback.Product:
		return "", r.showProduct(ctx, p.chatID, p.userID, lang, p.cmd.ID)
	case callback.ToggleFavorite:
		added, err := r.Repo.ToggleFavorite(ctx, p.userID, p.cmd.ID)
		if err != nil {
			return "", err
		}
		if added {
			return texts.T(lang, "fav_added"), nil
		}
		return texts.T(lang, "fav_removed"), nil
	case callback.NotifyStock:
		if err := r.Repo.SubscribeStock(ctx, p.userID, p.cmd.ID); err != nil {
			return "", err
		}
		return texts.T(lang, "notify_thanks"), nil

	case callback.OrderStart:
		return "", r.show(ctx, p, texts.T(lang, "order_start_hint"), messenger.Inline(messenger.Row(catalogButton(lang)), homeRow(lang)))
	case callback.OrderProduct:
		return "", r.Checkout.Begin(ctx, p.userID, p.cmd.ID, false)
	case callback.Reorder:
		order, err := r.Repo.GetOrder(ctx, p.cmd.ID)
		if err != nil || order.UserID != p.userID {
			return texts.T(lang, "order_not_found"), ignoreNotFound(err)
		}
		return "", r.Checkout.Begin(ctx, p.userID, order.ProductID, true)
	case callback.OrderCancel:
		return "", r.Checkout.Cancel(ctx, p.userID)
	case callback.MyOrders:
		return "", r.showMyOrders(ctx, p)
	case callback.OrderDetail:
		return r.showOrder(ctx, p)
	case callback.Review:
		r.States.Start(p.userID, conversation.FlowReview, conversation.Data{ReviewOrderID: p.cmd.ID})
		return "", r.say(ctx, p.chatID, texts.T(lang, "review_prompt"))

	case callback.DeleteProduct, callback.DeleteProductYes,
		callback.AdminOrderReceipt, callback.AdminOrderPaid, callback.AdminOrderShipped:
		if !r.isAdmin(p.userID) {
			return texts.T(lang, "admin_only"), nil
		}
		return r.dispatchAdmin(ctx, p)
	}
	return "", nil
}

func (r *Router) dispatchAdmin(ctx context.Context, p press) (string, error) {
	lang := p.lang
	switch p.cmd.Kind {
	case callback.DeleteProduct:
		prod, err := r.Repo.GetProduct(ctx, p.cmd.ID)
		if err != nil {
			return texts.T(lang, "product_missing"), ignoreNotFound(err)
		}
		return "", r.sendKeyboard(ctx, p.chatID, texts.T(lang, "delete_confirm", texts.Esc(prod.Title)), messenger.Inline(messenger.Row(
			button(lang, "btn_yes_delete", callback.WithID(callback.DeleteProductYes, prod.ID)),
			button(lang, "btn_no", callback.WithID(callback.Product, prod.ID)),
		)))
	case callback.DeleteProductYes:
		err := r.Catalog.Delete(ctx, p.cmd.ID)
		if errors.Is(err, service.ErrNotFound) {
			return texts.T(lang, "product_missing"), nil
		}
		if err != nil {
			return "", err
		}
		return texts.T(lang, "product_deleted"), r.show(ctx, p, texts.T(lang, "product_deleted"), messenger.Inline(messenger.Row(catalogButton(lang))))
	}

	status := map[callback.Kind]models.OrderStatus{
		callback.AdminOrderReceipt: models.StatusReceiptReceived,
		callback.AdminOrderPaid:    models.StatusPaid,
		callback.AdminOrderShipped: models.StatusShipped,
	}[p.cmd.Kind]

	order, changed, err := r.Orders.SetStatusTo(ctx, p.cmd.ID, status)
	if errors.Is(err, service.ErrNotFound) {
		return texts.T(lang, "order_not_found"), nil
	}
	if err != nil {
		return "", err
	}
	logging.FromContext(ctx).Info("admin_set_status", "order_id", order.ID, "status", status, "changed", changed)

	if p.messageID != 0 {
		product, _ := r.Repo.GetProduct(ctx, order.ProductID)
		card := notify.AdminOrderText(order, product)
		if err := r.Msg.Edit(ctx, p.chatID, p.messageID, card, notify.AdminOrderKeyboard(order.ID)); err != nil {
			logging.FromContext(ctx).Warn("admin_card_edit_failed", "error", err)
		}
	}
	return "✅ " + status.Label(), nil
}

// show edits the pressed message in place when possible and sends a new one otherwise.
func (r *Router) show(ctx context.Context, p press, text string, kb [][]messenger.Button) error {
	if p.messageID != 0 {
		if err := r.Msg.Edit(ctx, p.chatID, p.messageID, text, kb); err == nil {
			return nil
		}
	}
	return r.sendKeyboard(ctx, p.chatID, text, kb)
}

func (r *Router) sendKeyboard(ctx context.Context, chatID int64, text string, kb [][]messenger.Button) error {
	return r.send(ctx, messenger.Message{ChatID: chatID, Text: text, Inline: kb})
}

func (r *Router) showCatalog(ctx context.Context, chatID int64, messageID int, lang models.Lang) error {
	return r.show(ctx, press{chatID: chatID, messageID: messageID}, texts.T(lang, "catalog_title"), categoriesKeyboard(lang))
}

func (r *Router) showProducts(ctx context.Context, p press, c models.Category, sort string) error {
	total, items, err := r.Catalog.List(ctx, repo.ProductFilter{Category: c, Sort: sort})
	if err != nil {
		return err
	}
	back := messenger.Row(button(p.lang, "btn_back_catalog", callback.Simple(callback.Catalog)))
	if total == 0 {
		return r.show(ctx, p, texts.T(p.lang, "category_empty", c.Label()), messenger.Inline(back))
	}
	kb := productListKeyboard(p.lang, items, sortRow(p.lang, c), back)
	return r.show(ctx, p, texts.T(p.lang, "category_title", c.Label(), total), kb)
}

func (r *Router) showProduct(ctx context.Context, chatID, userID int64, lang models.Lang, id uint) error {
	prod, err := r.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.say(ctx, chatID, texts.T(lang, "product_missing"))
	}
	if err != nil {
		return err
	}
	fav, err := r.Repo.IsFavorite(ctx, userID, id)
	if err != nil {
		return err
	}

	text := productCard(lang, prod)
	kb := productKeyboard(lang, prod, fav, r.isAdmin(userID))

	media := messenger.Media{ChatID: chatID, Caption: truncateRunes(text, captionLimit), Inline: kb}
	switch {
	case prod.VideoFileID != "":
		media.Kind, media.FileID = messenger.Video, prod.VideoFileID
	case prod.ImageFileID != "":
		media.Kind, media.FileID = messenger.Photo, prod.ImageFileID
	default:
		return r.sendKeyboard(ctx, chatID, text, kb)
	}
	if _, err := r.Msg.SendMedia(ctx, media); err != nil {
		logging.FromContext(ctx).Warn("product_media_failed", "product_id", id, "error", err)
		return r.sendKeyboard(ctx, chatID, text, kb)
	}
	return nil
}

func productCard(lang models.Lang, p *models.Product) string {
	stock := texts.T(lang, "product_out")
	if p.InStock() {
		stock = texts.T(lang, "product_stock", p.Stock)
		if p.Stock <= repo.LowStockThreshold {
			stock += "\n" + texts.T(lang, "product_urgent")
		}
	}
	return texts.T(lang, "product_card",
		texts.Esc(p.Title), p.Category.Label(), texts.Price(p.Price), stock, texts.Esc(p.Description))
}

func (r *Router) showFavorites(ctx context.Context, p press) error {
	items, err := r.Repo.FavoriteProducts(ctx, p.userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return r.show(ctx, p, texts.T(p.lang, "favorites_empty"), messenger.Inline(messenger.Row(catalogButton(p.lang)), homeRow(p.lang)))
	}
	return r.show(ctx, p, texts.T(p.lang, "favorites_title"), productListKeyboard(p.lang, items, homeRow(p.lang)))
}

func (r *Router) showMyOrders(ctx context.Context, p press) error {
	orders, err := r.Repo.ListUserOrders(ctx, p.userID, myOrdersLimit)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return r.show(ctx, p, texts.T(p.lang, "my_orders_empty"), messenger.Inline(messenger.Row(catalogButton(p.lang)), homeRow(p.lang)))
	}
	titles, err := r.productTitles(ctx, p.lang, orders)
	if err != nil {
		return err
	}

	lines := []string{texts.T(p.lang, "my_orders_title"), ""}
	var rows [][]messenger.Button
	for _, o := range orders {
		lines = append(lines, texts.T(p.lang, "my_orders_line", o.OrderNumber, texts.Esc(titles[o.ProductID]), o.Status.Label()))
		rows = append(rows, messenger.Row(messenger.Button{
			Text: "📄 " + o.OrderNumber,
			Data: callback.WithID(callback.OrderDetail, o.ID),
		}))
	}
	rows = append(rows, homeRow(p.lang))
	return r.show(ctx, p, strings.Join(lines, "\n"), rows)
}

func (r *Router) showOrder(ctx context.Context, p press) (string, error) {
	o, err := r.Repo.GetOrder(ctx, p.cmd.ID)
	if err != nil || (o.UserID != p.userID && !r.isAdmin(p.userID)) {
		return texts.T(p.lang, "order_not_found"), ignoreNotFound(err)
	}

	title, price := texts.T(p.lang, "product_placeholder", o.ProductID), "—"
	if prod, err := r.Repo.GetProduct(ctx, o.ProductID); err == nil {
		title, price = prod.Title, texts.Price(prod.Price)
	}
	text := texts.T(p.lang, "order_detail",
		o.OrderNumber, o.Status.Label(), texts.Esc(title), price, o.CreatedAt.Format("02.01.2006 15:04"),
		texts.Esc(o.City), texts.Esc(o.Address), texts.Esc(o.FullName), texts.Esc(o.Phone))
	if o.Status.AwaitsReceipt() && r.PaymentRequisites != "" {
		text += texts.T(p.lang, "order_payment_info", r.PaymentRequisites)
	}

	rows := messenger.Inline(
		messenger.Row(button(p.lang, "btn_reorder", callback.WithID(callback.Reorder, o.ID))),
		messenger.Row(button(p.lang, "btn_back", callback.Simple(callback.MyOrders))),
	)
	if o.Status == models.StatusShipped {
		rows = append([][]messenger.Button{messenger.Row(button(p.lang, "btn_review", callback.WithID(callback.Review, o.ID)))}, rows...)
	}
	return "", r.show(ctx, p, text, rows)
}

func (r *Router) productTitles(ctx context.Context, lang models.Lang, orders []models.Order) (map[uint]string, error) {
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ProductID)
	}
	products, err := r.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(orders))
	for _, o := range orders {
		titles[o.ProductID] = texts.T(lang, "product_placeholder", o.ProductID)
	}
	for _, prod := range products {
		titles[prod.ID] = prod.Title
	}
	return titles, nil
}

func (r *Router) contacts(lang models.Lang) (string, [][]messenger.Button) {
	s := r.Support
	lines := []string{texts.T(lang, "contacts_title"), ""}
	var rows [][]messenger.Button

	if h := strings.TrimPrefix(strings.TrimSpace(s.Telegram), "@"); h != "" {
		lines = append(lines, "✈️ Telegram: @"+texts.Esc(h))
		rows = append(rows, messenger.Row(messenger.Button{Text: "✈️ Telegram", URL: "https://t.me/" + h}))
	}
	if ph := strings.TrimSpace(s.Phone); ph != "" {
		lines = append(lines, "📞 "+texts.T(lang, "contact_phone")+": "+texts.Esc(ph))
	}
	if wa := digitsOnly(s.WhatsApp); wa != "" {
		lines = append(lines, "💬 WhatsApp: +"+wa)
		rows = append(rows, messenger.Row(messenger.Button{Text: "💬 WhatsApp", URL: "https://wa.me/" + wa}))
	}
	if ig := strings.TrimPrefix(strings.TrimSpace(s.Instagram), "@"); ig != "" {
		lines = append(lines, "📷 Instagram: @"+texts.Esc(ig))
		rows = append(rows, messenger.Row(messenger.Button{Text: "📷 Instagram", URL: "https://instagram.com/" + ig}))
	}
	if len(lines) == 2 {
		lines = append(lines, texts.T(lang, "contacts_none"))
	}
	return strings.Join(lines, "\n"), append(rows, homeRow(lang))
}

func (r *Router) sendStats(ctx context.Context, chatID int64) error {
	st, err := r.Orders.Stats(ctx, time.Now())
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("📊 <b>Статистика</b>\n\n")
	fmt.Fprintf(&b, "Заказов всего: <b>%d</b>\nСегодня: <b>%d</b>\n\n", st.OrdersTotal, st.OrdersToday)
	for _, s := range models.Statuses() {
		fmt.Fprintf(&b, "• %s: %d\n", s.Label(), st.ByStatus[s])
	}
	fmt.Fprintf(&b, "\nТоваров: %d\nМало на складе: %d\nНет в наличии: %d", st.ProductsTotal, st.LowStock, st.OutOfStock)
	return r.say(ctx, chatID, b.String())
}

func (r *Router) sendRecentOrders(ctx context.Context, chatID int64) error {
	_, orders, err := r.Orders.List(ctx, repo.OrderFilter{Limit: myOrdersLimit})
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return r.say(ctx, chatID, "📋 Заказов пока нет.")
	}
	lines := []string{"📋 <b>Последние заказы</b>", ""}
	var rows [][]messenger.Button
	for _, o := range orders {
		lines = append(lines, fmt.Sprintf("• <code>%s</code> %s — %s", o.OrderNumber, texts.Esc(o.FullName), o.Status.Label()))
		rows = append(rows, messenger.Row(messenger.Button{Text: "📄 " + o.OrderNumber, Data: callback.WithID(callback.OrderDetail, o.ID)}))
	}
	return r.sendKeyboard(ctx, chatID, strings.Join(lines, "\n"), rows)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
