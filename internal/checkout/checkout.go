// Package checkout drives the conversational order flow: it collects the
// shipping details step by step, reserves stock and creates the order, then
// waits for a photographed payment receipt.
//
// User mistakes, unknown products and empty stock are answered in the chat.
// Only storage and transport failures are returned.
package checkout

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
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
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
)

const (
	MinNameLen    = 3
	MinPhoneDigit = 9
	MinCityLen    = 2
	MinAddressLen = 5

	DefaultMaxReceiptBytes = 10 << 20
)

type Orchestrator struct {
	States conversation.Manager
	Repo   *repo.GormRepo
	Msg    messenger.Messenger
	Notify *notify.Dispatcher
	Events mykafka.Publisher

	PaymentRequisites string
	MaxReceiptBytes   int64
}

// Input is one customer reply while a checkout step is active.
type Input struct {
	Text string
	// Contact is the phone number of a shared contact card.
	Contact string
	// LastAddress is set when the "use last address" button was pressed.
	LastAddress bool
}

// Photo is an image attached to a message. Size is 0 when the platform did not report it.
type Photo struct {
	FileID string
	Size   int64
}

// Begin starts a checkout for the product, replacing any flow in progress.
// A reorder only differs in the greeting.
func (o *Orchestrator) Begin(ctx context.Context, userID int64, productID uint, reorder bool) error {
	lang := o.Repo.UserLang(ctx, userID)

	p, err := o.Repo.GetProduct(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return o.say(ctx, userID, texts.T(lang, "product_missing"))
	}
	if err != nil {
		return err
	}
	if !p.InStock() {
		return o.send(ctx, messenger.Message{
			ChatID: userID,
			Text:   texts.T(lang, "order_out_of_stock"),
			Inline: messenger.Inline(messenger.Row(messenger.Button{
				Text: texts.T(lang, "btn_notify_stock"),
				Data: callback.WithID(callback.NotifyStock, p.ID),
			})),
		})
	}

	o.States.Start(userID, conversation.FlowCheckout, conversation.Data{
		ProductID:    p.ID,
		ProductTitle: p.Title,
		CheckoutKey:  uuid.NewString(),
	})
	logging.FromContext(ctx).Info("checkout_started", "user_id", userID, "product_id", p.ID, "reorder", reorder)

	key := "order_checkout"
	if reorder {
		key = "order_reorder"
	}
	return o.send(ctx, messenger.Message{
		ChatID: userID,
		Text:   texts.T(lang, key, texts.Esc(p.Title)),
		Inline: cancelKeyboard(lang),
	})
}

// Active reports whether the user is inside a checkout flow.
func (o *Orchestrator) Active(userID int64) bool {
	st, ok := o.States.Current(userID)
	return ok && st.Flow == conversation.FlowCheckout
}

// Handle consumes a reply for the current checkout step. It reports false when
// the user has no checkout in progress and the input belongs to someone else.
func (o *Orchestrator) Handle(ctx context.Context, userID int64, in Input) (bool, error) {
	st, ok := o.States.Current(userID)
	if !ok || st.Flow != conversation.FlowCheckout {
		return false, nil
	}
	lang := o.Repo.UserLang(ctx, userID)
	text := strings.TrimSpace(in.Text)

	switch st.Step {
	case conversation.StepCollectingName:
		if len([]rune(text)) < MinNameLen {
			return true, o.say(ctx, userID, texts.T(lang, "order_fio_min"))
		}
		o.States.Advance(userID, conversation.StepCollectingPhone, conversation.Data{FullName: text})
		return true, o.send(ctx, messenger.Message{
			ChatID: userID,
			Text:   texts.T(lang, "order_phone", texts.Esc(st.Data.ProductTitle)),
			Reply: [][]messenger.ReplyButton{
				{{Text: texts.T(lang, "btn_send_phone"), RequestContact: true}},
			},
		})

	case conversation.StepCollectingPhone:
		raw := text
		if in.Contact != "" {
			raw = in.Contact
		}
		phone, ok := NormalizePhone(raw)
		if !ok {
			return true, o.say(ctx, userID, texts.T(lang, "order_phone_invalid"))
		}
		o.States.Advance(userID, conversation.StepCollectingCity, conversation.Data{Phone: phone})
		return true, o.promptCity(ctx, userID, lang, st.Data.ProductTitle)

	case conversation.StepCollectingCity:
		if in.LastAddress {
			city, addr, ok, err := o.Repo.LastAddress(ctx, userID)
			if err != nil {
				return true, err
			}
			if !ok || addr == "" {
				return true, o.promptCity(ctx, userID, lang, st.Data.ProductTitle)
			}
			st, _ = o.States.Advance(userID, conversation.StepCollectingAddress, conversation.Data{City: city, Address: addr})
			return true, o.finalize(ctx, userID, lang, st)
		}
		if len([]rune(text)) < MinCityLen {
			return true, o.say(ctx, userID, texts.T(lang, "order_city_min"))
		}
		o.States.Advance(userID, conversation.StepCollectingAddress, conversation.Data{City: text})
		return true, o.send(ctx, messenger.Message{
			ChatID:      userID,
			Text:        texts.T(lang, "order_address", texts.Esc(st.Data.ProductTitle)),
			RemoveReply: true,
		})

	case conversation.StepCollectingAddress:
		if len([]rune(text)) < MinAddressLen {
			return true, o.say(ctx, userID, texts.T(lang, "order_address_min"))
		}
		st, _ = o.States.Advance(userID, conversation.StepCollectingAddress, conversation.Data{Address: text})
		return true, o.finalize(ctx, userID, lang, st)

	case conversation.StepAwaitingPaymentProof:
		return true, o.say(ctx, userID, texts.T(lang, "order_send_receipt_photo"))
	}

	o.States.Clear(userID)
	return true, o.say(ctx, userID, texts.T(lang, "order_session_reset"))
}

// finalize reserves stock and creates the order in one transaction. On any
// failure the flow stays on the address step so the user can resubmit.
func (o *Orchestrator) finalize(ctx context.Context, userID int64, lang models.Lang, st conversation.State) error {
	l := logging.FromContext(ctx).With("component", "checkout.finalize", "user_id", userID, "product_id", st.Data.ProductID)
	d := st.Data

	if d.ProductID == 0 || d.FullName == "" || d.Phone == "" || d.City == "" || d.Address == "" {
		o.States.Clear(userID)
		return o.say(ctx, userID, texts.T(lang, "order_session_reset"))
	}

	key := d.CheckoutKey
	order, created, err := o.Repo.PlaceOrder(ctx, &models.Order{
		UserID:      userID,
		ProductID:   d.ProductID,
		FullName:    d.FullName,
		Phone:       d.Phone,
		City:        d.City,
		Address:     d.Address,
		Status:      models.StatusNew,
		CheckoutKey: &key,
	})
	switch {
	case errors.Is(err, repo.ErrOutOfStock):
		l.Info("checkout_out_of_stock")
		return o.send(ctx, messenger.Message{
			ChatID: userID,
			Text:   texts.T(lang, "order_out_of_stock"),
			Inline: messenger.Inline(
				messenger.Row(messenger.Button{Text: texts.T(lang, "btn_notify_stock"), Data: callback.WithID(callback.NotifyStock, d.ProductID)}),
				messenger.Row(messenger.Button{Text: texts.T(lang, "btn_cancel_order"), Data: callback.Simple(callback.OrderCancel)}),
			),
		})
	case err != nil:
		l.Error("place_order_failed", "error", err)
		_ = o.say(ctx, userID, texts.T(lang, "error_later"))
		return err
	}

	if err := o.Repo.SaveLastAddress(ctx, userID, d.City, d.Address); err != nil {
		l.Warn("save_last_address_failed", "error", err)
	}
	o.States.Advance(userID, conversation.StepAwaitingPaymentProof, conversation.Data{OrderID: order.ID})

	product, err := o.Repo.GetProduct(ctx, order.ProductID)
	if err != nil {
		product = &models.Product{ID: order.ProductID, Title: d.ProductTitle}
	}
	if created {
		l.Info("order_created", "order_id", order.ID, "order_number", order.OrderNumber)
		if o.Notify != nil {
			o.Notify.NewOrder(ctx, order, product)
		}
		mykafka.Publish(ctx, o.Events, mykafka.TopicOrderEvents, order.OrderNumber, service.OrderEvent(service.EventOrderCreated, order))
	}

	return o.send(ctx, messenger.Message{
		ChatID: userID,
		Text: texts.T(lang, "order_created",
			order.OrderNumber, texts.Esc(product.Title), texts.Price(product.Price), o.PaymentRequisites),
		Inline: cancelKeyboard(lang),
	})
}

// Receipt accepts the payment proof photo. It reports false when the user is
// not waiting to send one.
func (o *Orchestrator) Receipt(ctx context.Context, userID int64, photo Photo) (bool, error) {
	st, ok := o.States.Current(userID)
	if !ok || st.Flow != conversation.FlowCheckout {
		return false, nil
	}
	lang := o.Repo.UserLang(ctx, userID)
	if st.Step != conversation.StepAwaitingPaymentProof {
		_, err := o.Handle(ctx, userID, Input{})
		return true, err
	}

	limit := o.MaxReceiptBytes
	if limit <= 0 {
		limit = DefaultMaxReceiptBytes
	}
	if photo.Size > limit {
		return true, o.say(ctx, userID, texts.T(lang, "order_receipt_too_large"))
	}

	order, err := o.Repo.AttachReceipt(ctx, st.Data.OrderID, userID, photo.FileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		o.States.Clear(userID)
		return true, o.say(ctx, userID, texts.T(lang, "order_not_found"))
	}
	if err != nil {
		_ = o.say(ctx, userID, texts.T(lang, "error_later"))
		return true, err
	}

	o.States.Clear(userID)
	logging.FromContext(ctx).Info("receipt_received", "user_id", userID, "order_id", order.ID)
	if o.Notify != nil {
		o.Notify.ReceiptReceived(ctx, order, photo.FileID)
	}
	mykafka.Publish(ctx, o.Events, mykafka.TopicOrderEvents, order.OrderNumber, service.OrderEvent(service.EventOrderReceipt, order))
	return true, o.say(ctx, userID, texts.T(lang, "order_thanks"))
}

// Cancel drops the checkout in progress. Orders already created are kept.
func (o *Orchestrator) Cancel(ctx context.Context, userID int64) error {
	lang := o.Repo.UserLang(ctx, userID)
	if !o.Active(userID) {
		return o.say(ctx, userID, texts.T(lang, "cancel_nothing"))
	}
	o.States.Clear(userID)
	return o.send(ctx, messenger.Message{ChatID: userID, Text: texts.T(lang, "order_cancel_done"), RemoveReply: true})
}

func (o *Orchestrator) promptCity(ctx context.Context, userID int64, lang models.Lang, title string) error {
	msg := messenger.Message{ChatID: userID, Text: texts.T(lang, "order_city", texts.Esc(title)), RemoveReply: true}
	city, _, ok, err := o.Repo.LastAddress(ctx, userID)
	if err != nil {
		return err
	}
	if ok && city != "" {
		msg.RemoveReply = false
		msg.Reply = [][]messenger.ReplyButton{{{Text: texts.T(lang, "btn_last_address")}}}
	}
	return o.send(ctx, msg)
}

func (o *Orchestrator) say(ctx context.Context, userID int64, text string) error {
	return o.send(ctx, messenger.Message{ChatID: userID, Text: text})
}

func (o *Orchestrator) send(ctx context.Context, msg messenger.Message) error {
	if o.Msg == nil {
		return nil
	}
	_, err := o.Msg.Send(ctx, msg)
	return err
}

func cancelKeyboard(lang models.Lang) [][]messenger.Button {
	return messenger.Inline(messenger.Row(messenger.Button{
		Text: texts.T(lang, "btn_cancel_order"),
		Data: callback.Simple(callback.OrderCancel),
	}))
}

// NormalizePhone keeps the digits of raw and a leading plus. The result always
// starts with "+" and is rejected with fewer than MinPhoneDigit digits.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	b.WriteByte('+')
	digits := 0
	for _, r := range strings.TrimSpace(raw) {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < MinPhoneDigit {
		return "", false
	}
	return b.String(), true
}
