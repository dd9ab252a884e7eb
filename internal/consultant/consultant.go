package consultant

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/laptop_shop/internal/models"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
)

const (
	MinQuestionLen = 3
	HistoryLimit   = 10
	maxTurnRunes   = 2000
)

type Consultant struct {
	Client *Client
	Repo   *repo.GormRepo
}

func (c *Consultant) Available() bool { return c != nil && c.Client.Configured() }

// Ask answers the question with the catalog as context and the user's recent
// history. Both turns are stored once the model replies.
func (c *Consultant) Ask(ctx context.Context, userID int64, question string) (string, error) {
	l := logging.FromContext(ctx).With("component", "consultant", "user_id", userID)
	question = truncate(strings.TrimSpace(question))

	_, products, err := c.Repo.ListProducts(ctx, repo.ProductFilter{Sort: "price_asc"})
	if err != nil {
		return "", err
	}
	history, err := c.Repo.AIHistory(ctx, userID, HistoryLimit)
	if err != nil {
		return "", err
	}

	msgs := make([]ChatMessage, 0, len(history)+2)
	msgs = append(msgs, ChatMessage{Role: "system", Content: SystemPrompt(products)})
	for _, h := range history {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		msgs = append(msgs, ChatMessage{Role: h.Role, Content: truncate(h.Content)})
	}
	msgs = append(msgs, ChatMessage{Role: "user", Content: question})

	answer, err := c.Client.Complete(ctx, msgs)
	if err != nil {
		l.Warn("consultant_failed", "error", err)
		return "", err
	}

	if err := c.Repo.LogAIMessage(ctx, userID, "user", question); err != nil {
		l.Warn("history_save_failed", "error", err)
	}
	if err := c.Repo.LogAIMessage(ctx, userID, "assistant", answer); err != nil {
		l.Warn("history_save_failed", "error", err)
	}
	return answer, nil
}

// SystemPrompt primes the model with shop rules and the catalog with stock notes.
func SystemPrompt(products []models.Product) string {
	var b strings.Builder
	b.WriteString("Ты — консультант магазина ноутбуков в Таджикистане. Помогаешь подобрать ноутбук по бюджету и целям.\n\n")
	b.WriteString("Правила:\n")
	b.WriteString("1. Отвечай на языке пользователя.\n")
	b.WriteString("2. Рекомендуй только товары из каталога ниже, с точным названием и ценой в сомони.\n")
	b.WriteString("3. Игры → игровые, учёба → учёба, офис и работа → работа.\n")
	b.WriteString("4. Если назван бюджет, предложи 1–3 варианта в формате «• Название — N сомони. Почему подходит.»\n")
	b.WriteString("5. Пиши коротко, без длинных абзацев.\n")
	b.WriteString("6. Не предлагай товары, которых нет в наличии.\n\n")
	b.WriteString("Каталог:\n")

	if len(products) == 0 {
		b.WriteString("Пока нет товаров в каталоге.")
		return b.String()
	}
	for _, p := range products {
		stock := "нет в наличии (не рекомендуй)"
		if p.InStock() {
			stock = fmt.Sprintf("в наличии %d шт", p.Stock)
		}
		fmt.Fprintf(&b, "- %s: %d сомони (%s), %s. %s\n", p.Title, p.Price, p.Category.Label(), stock, p.Description)
	}
	return b.String()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTurnRunes {
		return s
	}
	return string(r[:maxTurnRunes])
}
