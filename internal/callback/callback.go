// Package callback encodes and decodes inline button payloads.
//
// Payloads are "<kind>" or "<kind>:<arg>[:<arg>]" and are decoded once into a Command.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

var ErrUnknown = errors.New("unknown callback")

type Kind string

const (
	Home        Kind = "home"
	Catalog     Kind = "catalog"
	FAQ         Kind = "faq"
	Contacts    Kind = "contacts"
	Search      Kind = "search"
	MyFavorites Kind = "my_favorites"
	Settings    Kind = "settings"
	OrderStart  Kind = "order_start"
	MyOrders    Kind = "my_orders"
	OrderCancel Kind = "order_cancel"
	AIConsult   Kind = "ai_consult"

	SetLang Kind = "set_lang"

	Category Kind = "cat"
	Products Kind = "products"

	Product           Kind = "product"
	ToggleFavorite    Kind = "toggle_fav"
	Review            Kind = "review"
	OrderProduct      Kind = "order_product"
	NotifyStock       Kind = "notify_stock"
	DeleteProduct     Kind = "delete_product"
	DeleteProductYes  Kind = "delete_product_yes"
	OrderDetail       Kind = "order_detail"
	Reorder           Kind = "reorder"
	AdminOrderReceipt Kind = "admin_order_receipt"
	AdminOrderPaid    Kind = "admin_order_paid"
	AdminOrderShipped Kind = "admin_order_shipped"
)

type argShape int

const (
	noArg argShape = iota
	idArg
	langArg
	categoryArg
	categorySortArg
)

var shapes = map[Kind]argShape{
	Home: noArg, Catalog: noArg, FAQ: noArg, Contacts: noArg, Search: noArg,
	MyFavorites: noArg, Settings: noArg, OrderStart: noArg, MyOrders: noArg,
	OrderCancel: noArg, AIConsult: noArg,

	SetLang: langArg,

	Category: categoryArg,
	Products: categorySortArg,

	Product: idArg, ToggleFavorite: idArg, Review: idArg, OrderProduct: idArg,
	NotifyStock: idArg, DeleteProduct: idArg, DeleteProductYes: idArg,
	OrderDetail: idArg, Reorder: idArg, AdminOrderReceipt: idArg,
	AdminOrderPaid: idArg, AdminOrderShipped: idArg,
}

var sorts = map[string]bool{"price_asc": true, "price_desc": true, "title_asc": true, "id": true}

const DefaultSort = "price_asc"

// Command is a decoded button press. Only the fields used by Kind are set.
type Command struct {
	Kind     Kind
	ID       uint
	Lang     models.Lang
	Category models.Category
	Sort     string
}

func Parse(data string) (Command, error) {
	parts := strings.Split(data, ":")
	kind := Kind(parts[0])
	shape, ok := shapes[kind]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknown, data)
	}
	args := parts[1:]
	cmd := Command{Kind: kind}

	switch shape {
	case noArg:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: %q takes no argument", ErrUnknown, data)
		}
	case idArg:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: %q needs an id", ErrUnknown, data)
		}
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return Command{}, fmt.Errorf("%w: bad id in %q", ErrUnknown, data)
		}
		cmd.ID = uint(id)
	case langArg:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: %q needs a language", ErrUnknown, data)
		}
		lang, err := models.ParseLang(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		cmd.Lang = lang
	case categoryArg, categorySortArg:
		want := 1
		if shape == categorySortArg {
			want = 2
		}
		if len(args) != want {
			return Command{}, fmt.Errorf("%w: %q has %d arguments", ErrUnknown, data, len(args))
		}
		cat, err := models.ParseCategory(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		cmd.Category = cat
		cmd.Sort = DefaultSort
		if shape == categorySortArg {
			if !sorts[args[1]] {
				return Command{}, fmt.Errorf("%w: bad sort in %q", ErrUnknown, data)
			}
			cmd.Sort = args[1]
		}
	}
	return cmd, nil
}

// Data encodes the command back into a button payload.
func (c Command) Data() string {
	switch shapes[c.Kind] {
	case idArg:
		return fmt.Sprintf("%s:%d", c.Kind, c.ID)
	case langArg:
		return fmt.Sprintf("%s:%s", c.Kind, c.Lang)
	case categoryArg:
		return fmt.Sprintf("%s:%s", c.Kind, c.Category)
	case categorySortArg:
		sort := c.Sort
		if sort == "" {
			sort = DefaultSort
		}
		return fmt.Sprintf("%s:%s:%s", c.Kind, c.Category, sort)
	default:
		return string(c.Kind)
	}
}

// Simple builds the payload of an argument-less command.
func Simple(k Kind) string { return Command{Kind: k}.Data() }

// WithID builds the payload of an id-carrying command.
func WithID(k Kind, id uint) string { return Command{Kind: k, ID: id}.Data() }

func CategoryData(c models.Category) string { return Command{Kind: Category, Category: c}.Data() }

func ProductsData(c models.Category, sort string) string {
	return Command{Kind: Products, Category: c, Sort: sort}.Data()
}

func LangData(l models.Lang) string { return Command{Kind: SetLang, Lang: l}.Data() }
