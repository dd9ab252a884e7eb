package models

import "fmt"

type OrderStatus string

const (
	StatusNew             OrderStatus = "new"
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusReceiptReceived OrderStatus = "receipt_received"
	StatusPaid            OrderStatus = "paid"
	StatusShipped         OrderStatus = "shipped"
)

var statusLabels = map[OrderStatus]string{
	StatusNew:             "Новый",
	StatusAwaitingPayment: "Ожидает оплату",
	StatusReceiptReceived: "Чек получен",
	StatusPaid:            "Оплачен",
	StatusShipped:         "Отправлен",
}

// Statuses is the lifecycle order of order statuses.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusNew, StatusAwaitingPayment, StatusReceiptReceived, StatusPaid, StatusShipped}
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := statusLabels[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// NotifiesCustomer reports whether moving an order into s sends the customer a message.
func (s OrderStatus) NotifiesCustomer() bool {
	return s == StatusPaid || s == StatusShipped
}

// AwaitsReceipt reports whether an order in s still waits for the customer's payment proof.
func (s OrderStatus) AwaitsReceipt() bool {
	return s == StatusNew || s == StatusAwaitingPayment
}

type Category string

const (
	CategoryGaming Category = "gaming"
	CategoryStudy  Category = "study"
	CategoryWork   Category = "work"
)

var categoryLabels = map[Category]string{
	CategoryGaming: "Игровые",
	CategoryStudy:  "Учёба",
	CategoryWork:   "Работа",
}

func Categories() []Category {
	return []Category{CategoryGaming, CategoryStudy, CategoryWork}
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryLabels[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

type Lang string

const (
	LangRU Lang = "ru"
	LangTG Lang = "tg"
)

func ParseLang(s string) (Lang, error) {
	switch Lang(s) {
	case LangRU, LangTG:
		return Lang(s), nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}
