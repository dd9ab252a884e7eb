package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want Command
	}{
		{"home", Command{Kind: Home}},
		{"order_cancel", Command{Kind: OrderCancel}},
		{"product:5", Command{Kind: Product, ID: 5}},
		{"admin_order_paid:12", Command{Kind: AdminOrderPaid, ID: 12}},
		{"delete_product_yes:3", Command{Kind: DeleteProductYes, ID: 3}},
		{"set_lang:tg", Command{Kind: SetLang, Lang: models.LangTG}},
		{"cat:gaming", Command{Kind: Category, Category: models.CategoryGaming, Sort: DefaultSort}},
		{"products:work:title_asc", Command{Kind: Products, Category: models.CategoryWork, Sort: "title_asc"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.data, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	for _, data := range []string{
		"", "nope", "product", "product:x", "product:0", "product:1:2",
		"home:1", "set_lang:en", "cat:phones", "products:work", "products:work:random",
	} {
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrUnknown, data)
	}
}

func TestData_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, data := range []string{
		"catalog", "my_orders", "review:9", "reorder:4", "set_lang:ru",
		"cat:study", "products:gaming:price_desc", "notify_stock:2",
	} {
		cmd, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, data, cmd.Data())
	}

	assert.Equal(t, "products:study:price_asc", ProductsData(models.CategoryStudy, ""))
	assert.Equal(t, "admin_order_shipped:7", WithID(AdminOrderShipped, 7))
	assert.Equal(t, "faq", Simple(FAQ))
}
