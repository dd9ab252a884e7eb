// Package notify delivers order and stock notifications to staff and customers.
//
// Delivery is best-effort: a failed send is logged and never returned to the caller.
package notify

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/laptop_shop/internal/callback"
	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/texts"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

type Dispatcher struct {
	// Msg is nil when the chat channel is unavailable; every notification is then skipped.
	Msg      messenger.Messenger
	Repo     *repo.GormRepo
	AdminIDs []int64
}

// NewOrder sends the new-order card to every staff recipient and reports how many received it.
// product may be nil when it was deleted in the meantime.
func (d *Dispatcher) NewOrder(ctx context.Context, order *models.Order, product *models.Product) int {
	l := logging.FromContext(ctx).With("component", "notify.new_order", "order_id", order.ID)
	if d.Msg == nil {
		return 0
	}
	if len(d.AdminIDs) == 0 {
		l.Warn("no_admin_recipients")
		return 0
	}

	text := AdminOrderText(order, product)
	kb := AdminOrderKeyboard(order.ID)

	delivered := 0
	for _, adminID := range d.AdminIDs {
		if _, err := d.Msg.Send(ctx, messenger.Message{ChatID: adminID, Text: text, Inline: kb}); err != nil {
			l.Error("admin_notify_failed", "admin_id", adminID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// ReceiptReceived forwards the customer's receipt photo to every staff recipient.
func (d *Dispatcher) ReceiptReceived(ctx context.Context, order *models.Order, fileID string) int {
	if d.Msg == nil {
		return 0
	}
	l := logging.FromContext(ctx).With("component", "notify.receipt", "order_id", order.ID)

	caption := fmt.Sprintf("🧾 <b>Чек по заказу</b> <code>%s</code>\n👤 %s, %s",
		order.OrderNumber, texts.Esc(order.FullName), texts.Esc(order.Phone))
	kb := messenger.Inline(
		messenger.Row(messenger.Button{Text: models.StatusPaid.Label(), Data: callback.WithID(callback.AdminOrderPaid, order.ID)}),
	)

	delivered := 0
	for _, adminID := range d.AdminIDs {
		m := messenger.Media{ChatID: adminID, Kind: messenger.Photo, FileID: fileID, Caption: caption, Inline: kb}
		if _, err := d.Msg.SendMedia(ctx, m); err != nil {
			l.Warn("receipt_forward_failed", "admin_id", adminID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// AdminOrderKeyboard holds the staff status buttons of an order card.
func AdminOrderKeyboard(id uint) [][]messenger.Button {
	return messenger.Inline(
		messenger.Row(messenger.Button{Text: models.StatusReceiptReceived.Label(), Data: callback.WithID(callback.AdminOrderReceipt, id)}),
		messenger.Row(messenger.Button{Text: models.StatusPaid.Label(), Data: callback.WithID(callback.AdminOrderPaid, id)}),
		messenger.Row(messenger.Button{Text: models.StatusShipped.Label(), Data: callback.WithID(callback.AdminOrderShipped, id)}),
	)
}

// AdminOrderText renders the staff-facing order card.
func AdminOrderText(order *models.Order, product *models.Product) string {
	title, category, price := fmt.Sprintf("#%d", order.ProductID), "—", "—"
	if product != nil {
		title = product.Title
		category = product.Category.Label()
		price = texts.Price(product.Price)
	}
	return fmt.Sprintf(
		"🆕 <b>Новый заказ</b>\n\n"+
			"📋 Номер: <code>%s</code>\n"+
			"👤 ФИО: %s\n"+
			"📞 Телефон: %s\n"+
			"🏙 Город: %s\n"+
			"📍 Адрес: %s\n\n"+
			"🖥 Товар: %s\n"+
			"📂 Категория: %s\n"+
			"💰 Цена: %s\n\n"+
			"📌 Статус: %s",
		order.OrderNumber, texts.Esc(order.FullName), texts.Esc(order.Phone),
		texts.Esc(order.City), texts.Esc(order.Address),
		texts.Esc(title), category, price, order.Status.Label(),
	)
}

// StatusChanged tells the customer about a move to paid or shipped.
// It reports whether a delivery was attempted; other statuses are silent.
func (d *Dispatcher) StatusChanged(ctx context.Context, order *models.Order) bool {
	if d.Msg == nil || !order.Status.NotifiesCustomer() {
		return false
	}
	l := logging.FromContext(ctx).With("component", "notify.status_changed", "order_id", order.ID, "status", order.Status)

	lang := d.Repo.UserLang(ctx, order.UserID)
	msg := messenger.Message{ChatID: order.UserID}
	switch order.Status {
	case models.StatusPaid:
		msg.Text = texts.T(lang, "order_paid", order.OrderNumber)
	case models.StatusShipped:
		msg.Text = texts.T(lang, "order_shipped", order.OrderNumber)
		msg.Inline = messenger.Inline(messenger.Row(messenger.Button{
			Text: texts.T(lang, "btn_review"),
			Data: callback.WithID(callback.Review, order.ID),
		}))
	}

	if _, err := d.Msg.Send(ctx, msg); err != nil {
		l.Warn("customer_notify_failed", "user_id", order.UserID, "error", err)
	}
	return true
}

// StockAvailable tells every subscriber of the product that it is back and drops the subscriptions.
func (d *Dispatcher) StockAvailable(ctx context.Context, product *models.Product) int {
	if d.Msg == nil {
		return 0
	}
	l := logging.FromContext(ctx).With("component", "notify.stock_available", "product_id", product.ID)

	ids, err := d.Repo.TakeStockSubscribers(ctx, product.ID)
	if err != nil {
		l.Error("take_subscribers_failed", "error", err)
		return 0
	}

	delivered := 0
	for _, userID := range ids {
		lang := d.Repo.UserLang(ctx, userID)
		msg := messenger.Message{
			ChatID: userID,
			Text:   texts.T(lang, "stock_available", texts.Esc(product.Title)),
			Inline: messenger.Inline(messenger.Row(messenger.Button{
				Text: texts.T(lang, "btn_order_product"),
				Data: callback.WithID(callback.Product, product.ID),
			})),
		}
		if _, err := d.Msg.Send(ctx, msg); err != nil {
			l.Warn("subscriber_notify_failed", "user_id", userID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
