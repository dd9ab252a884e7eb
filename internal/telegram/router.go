package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Skotchmaster/laptop_shop/internal/checkout"
	"github.com/Skotchmaster/laptop_shop/internal/consultant"
	"github.com/Skotchmaster/laptop_shop/internal/conversation"
	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/texts"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

const maxReviewRunes = 2000

type Support struct {
	Telegram  string
	Phone     string
	WhatsApp  string
	Instagram string
}

// Router turns Telegram updates into shop actions. Updates of one user are
// handled one at a time; different users run in parallel.
type Router struct {
	Msg        messenger.Messenger
	Repo       *repo.GormRepo
	States     conversation.Manager
	Checkout   *checkout.Orchestrator
	Orders     *service.OrderService
	Catalog    *service.CatalogService
	Consultant *consultant.Consultant

	AdminIDs          []int64
	Support           Support
	Welcome           string
	PaymentRequisites string

	locks keyedMutex
}

// Run dispatches updates until ctx is cancelled or the channel closes, then
// waits for handlers in flight.
func (r *Router) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	l := logging.FromContext(ctx).With("component", "telegram.router")
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if p := recover(); p != nil {
						l.Error("update_panic", "update_id", upd.UpdateID, "panic", fmt.Sprint(p))
					}
				}()
				if err := r.HandleUpdate(ctx, upd); err != nil {
					l.Error("update_failed", "update_id", upd.UpdateID, "error", err)
				}
			}()
		}
	}
}

// HandleUpdate processes a single update under the sender's lock.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	from := upd.SentFrom()
	if from == nil {
		return nil
	}
	unlock := r.locks.Lock(from.ID)
	defer unlock()

	ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", from.ID))

	switch {
	case upd.CallbackQuery != nil:
		return r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return r.handleMessage(ctx, upd.Message)
	}
	return nil
}

func (r *Router) isAdmin(userID int64) bool { return slices.Contains(r.AdminIDs, userID) }

func (r *Router) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	userID := m.From.ID
	lang := r.Repo.UserLang(ctx, userID)

	if m.IsCommand() {
		return r.handleCommand(ctx, m, lang)
	}

	if m.Contact != nil {
		if handled, err := r.Checkout.Handle(ctx, userID, checkout.Input{Contact: m.Contact.PhoneNumber}); handled || err != nil {
			return err
		}
		return r.unknown(ctx, userID, lang)
	}

	if photo, ok := receiptPhoto(m); ok {
		if handled, err := r.Checkout.Receipt(ctx, userID, photo); handled || err != nil {
			return err
		}
		return r.unknown(ctx, userID, lang)
	}

	text := strings.TrimSpace(m.Text)
	st, active := r.States.Current(userID)
	if !active {
		return r.unknown(ctx, userID, lang)
	}

	switch st.Flow {
	case conversation.FlowCheckout:
		in := checkout.Input{Text: text, LastAddress: isLastAddressButton(text)}
		_, err := r.Checkout.Handle(ctx, userID, in)
		return err
	case conversation.FlowReview:
		return r.saveReview(ctx, userID, lang, st, text)
	case conversation.FlowSearch:
		return r.runSearch(ctx, userID, lang, text)
	case conversation.FlowConsult:
		return r.askConsultant(ctx, userID, lang, text)
	}
	r.States.Clear(userID)
	return r.unknown(ctx, userID, lang)
}

func (r *Router) handleCommand(ctx context.Context, m *tgbotapi.Message, lang models.Lang) error {
	userID := m.From.ID
	switch m.Command() {
	case "start":
		name := strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
		if err := r.Repo.EnsureUser(ctx, userID, m.From.UserName, name); err != nil {
			return err
		}
		r.States.Clear(userID)
		return r.sendHome(ctx, userID, lang, r.welcomeText(lang, m.From.FirstName))
	case "help":
		text := texts.T(lang, "help")
		if r.isAdmin(userID) {
			text += texts.T(lang, "help_admin")
		}
		return r.send(ctx, messenger.Message{ChatID: userID, Text: text, Inline: homeKeyboard(lang)})
	case "cancel":
		return r.cancel(ctx, userID, lang)
	case "catalog":
		return r.showCatalog(ctx, userID, 0, lang)
	case "consult":
		return r.startConsult(ctx, userID, lang)
	case "stats":
		if !r.isAdmin(userID) {
			return r.say(ctx, userID, texts.T(lang, "admin_only"))
		}
		return r.sendStats(ctx, userID)
	case "orders":
		if !r.isAdmin(userID) {
			return r.say(ctx, userID, texts.T(lang, "admin_only"))
		}
		return r.sendRecentOrders(ctx, userID)
	}
	return r.unknown(ctx, userID, lang)
}

func (r *Router) cancel(ctx context.Context, userID int64, lang models.Lang) error {
	if r.Checkout.Active(userID) {
		return r.Checkout.Cancel(ctx, userID)
	}
	if _, ok := r.States.Current(userID); !ok {
		return r.sendHome(ctx, userID, lang, texts.T(lang, "cancel_nothing"))
	}
	r.States.Clear(userID)
	return r.sendHome(ctx, userID, lang, texts.T(lang, "cancel_done"))
}

func (r *Router) welcomeText(lang models.Lang, firstName string) string {
	if r.Welcome != "" {
		return r.Welcome
	}
	greeting := texts.T(lang, "welcome_no_name")
	if n := strings.TrimSpace(firstName); n != "" {
		greeting = texts.T(lang, "welcome", texts.Esc(n))
	}
	return greeting + "\n\n" + texts.T(lang, "welcome_sub")
}

func (r *Router) saveReview(ctx context.Context, userID int64, lang models.Lang, st conversation.State, text string) error {
	if text == "" {
		return r.say(ctx, userID, texts.T(lang, "review_prompt"))
	}
	if runes := []rune(text); len(runes) > maxReviewRunes {
		text = string(runes[:maxReviewRunes])
	}
	review := &models.Review{UserID: userID, Text: text}
	if id := st.Data.ReviewOrderID; id != 0 {
		review.OrderID = &id
	}
	if err := r.Repo.AddReview(ctx, review); err != nil {
		return err
	}
	r.States.Clear(userID)
	logging.FromContext(ctx).Info("review_saved", "order_id", st.Data.ReviewOrderID)
	return r.sendHome(ctx, userID, lang, texts.T(lang, "review_thanks"))
}

func (r *Router) runSearch(ctx context.Context, userID int64, lang models.Lang, query string) error {
	items, err := r.Catalog.Search(ctx, query, 20)
	if errors.Is(err, service.ErrValidation) {
		return r.say(ctx, userID, texts.T(lang, "search_short"))
	}
	if err != nil {
		return err
	}
	r.States.Clear(userID)
	if len(items) == 0 {
		return r.sendHome(ctx, userID, lang, texts.T(lang, "search_empty"))
	}
	return r.send(ctx, messenger.Message{
		ChatID: userID,
		Text:   texts.T(lang, "search_results"),
		Inline: productListKeyboard(lang, items, homeRow(lang)),
	})
}

func (r *Router) startConsult(ctx context.Context, userID int64, lang models.Lang) error {
	if !r.Consultant.Available() {
		return r.sendHome(ctx, userID, lang, texts.T(lang, "ai_unavailable"))
	}
	r.States.Start(userID, conversation.FlowConsult, conversation.Data{})
	return r.say(ctx, userID, texts.T(lang, "ai_prompt"))
}

func (r *Router) askConsultant(ctx context.Context, userID int64, lang models.Lang, question string) error {
	if len([]rune(question)) < consultant.MinQuestionLen {
		return r.say(ctx, userID, texts.T(lang, "ai_short"))
	}
	answer, err := r.Consultant.Ask(ctx, userID, question)
	if err != nil {
		r.States.Clear(userID)
		return r.sendHome(ctx, userID, lang, texts.T(lang, "ai_unavailable"))
	}
	return r.send(ctx, messenger.Message{
		ChatID: userID,
		Text:   texts.T(lang, "ai_answer", texts.Esc(answer)),
		Inline: messenger.Inline(
			messenger.Row(catalogButton(lang)),
			homeRow(lang),
		),
	})
}

func (r *Router) unknown(ctx context.Context, userID int64, lang models.Lang) error {
	return r.sendHome(ctx, userID, lang, texts.T(lang, "unknown_input"))
}

func (r *Router) sendHome(ctx context.Context, userID int64, lang models.Lang, text string) error {
	return r.send(ctx, messenger.Message{ChatID: userID, Text: text, Inline: homeKeyboard(lang)})
}

func (r *Router) say(ctx context.Context, userID int64, text string) error {
	return r.send(ctx, messenger.Message{ChatID: userID, Text: text})
}

func (r *Router) send(ctx context.Context, msg messenger.Message) error {
	_, err := r.Msg.Send(ctx, msg)
	return err
}

// receiptPhoto extracts the largest photo size, or an image sent as a document.
func receiptPhoto(m *tgbotapi.Message) (checkout.Photo, bool) {
	if n := len(m.Photo); n > 0 {
		p := m.Photo[n-1]
		return checkout.Photo{FileID: p.FileID, Size: int64(p.FileSize)}, true
	}
	if d := m.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return checkout.Photo{FileID: d.FileID, Size: int64(d.FileSize)}, true
	}
	return checkout.Photo{}, false
}

func isLastAddressButton(text string) bool {
	for _, lang := range []models.Lang{models.LangRU, models.LangTG} {
		if text == texts.T(lang, "btn_last_address") {
			return true
		}
	}
	return false
}

// keyedMutex hands out one mutex per user and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
