// Package texts holds user-facing bot messages in Russian and Tajik.
package texts

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/Skotchmaster/laptop_shop/internal/models"
)

// T returns the message for key in lang, falling back to Russian and then to the key itself.
// Arguments are applied with fmt.Sprintf.
func T(lang models.Lang, key string, args ...any) string {
	s, ok := catalog[lang][key]
	if !ok {
		s, ok = catalog[models.LangRU][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// Price formats an amount with space-separated thousands, e.g. "4 500 сомони".
func Price(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(" сомони")
	return b.String()
}

// Esc escapes user-provided text for HTML-formatted messages.
func Esc(s string) string { return html.EscapeString(s) }

var catalog = map[models.Lang]map[string]string{
	models.LangRU: ru,
	models.LangTG: tg,
}

var ru = map[string]string{
	"welcome":         "👋 Здравствуйте, %s!",
	"welcome_no_name": "👋 Здравствуйте!",
	"welcome_sub":     "Магазин ноутбуков: выберите раздел ниже.",
	"main_menu":       "🏠 Главное меню",
	"help": "ℹ️ <b>Помощь</b>\n\n" +
		"/catalog — каталог ноутбуков\n" +
		"/consult — AI-консультант\n" +
		"/cancel — отменить текущее действие\n\n" +
		"Чтобы заказать: откройте товар и нажмите «Заказать», затем укажите ФИО, телефон, город и адрес.",
	"help_admin":     "\n\n<b>/stats</b> — статистика\n<b>/orders</b> — последние заказы",
	"cancel_done":    "❌ Действие отменено.",
	"cancel_nothing": "Нечего отменять.",
	"unknown_input":  "Не понял вас. Воспользуйтесь меню.",
	"admin_only":     "Только для администратора.",
	"error_later":    "⚠️ Что-то пошло не так. Попробуйте позже.",

	"btn_catalog":         "💻 Каталог",
	"btn_ai":              "🤖 AI-консультант",
	"btn_how_order":       "🛒 Как заказать",
	"btn_my_orders":       "📋 Мои заказы",
	"btn_faq":             "❓ FAQ",
	"btn_contacts":        "📞 Контакты",
	"btn_favorites":       "⭐ Избранное",
	"btn_search":          "🔍 Поиск",
	"btn_settings":        "⚙️ Настройки",
	"btn_home":            "🏠 Главное меню",
	"btn_back_catalog":    "◀️ Каталог",
	"btn_back":            "◀️ Назад",
	"btn_send_phone":      "📱 Отправить номер",
	"btn_last_address":    "📍 Использовать последний адрес",
	"btn_cancel_order":    "❌ Отменить заказ",
	"btn_order_product":   "🛒 Заказать",
	"btn_notify_stock":    "🔔 Сообщить о поступлении",
	"btn_add_favorite":    "⭐ В избранное",
	"btn_remove_favorite": "✖️ Убрать из избранного",
	"btn_delete_product":  "🗑 Удалить товар",
	"btn_yes_delete":      "✅ Да, удалить",
	"btn_no":              "Нет",
	"btn_review":          "⭐ Оставить отзыв",
	"btn_reorder":         "🔄 Повторить заказ",
	"btn_refresh":         "🔄 Обновить",
	"sort_cheaper":        "⬆️ Дешевле",
	"sort_dearer":         "⬇️ Дороже",
	"sort_name":           "🔤 По названию",

	"catalog_title":    "💻 <b>Каталог</b>\n\nВыберите категорию:",
	"category_title":   "📂 <b>%s</b> (%d шт.)\n\nВыберите ноутбук:",
	"category_empty":   "📂 <b>%s</b>\n\nВ этой категории пока нет товаров.",
	"product_card":     "🖥 <b>%s</b>\n\n📂 %s\n💰 <b>%s</b>\n%s\n\n%s\n\n🚚 Доставка по всему Таджикистану.",
	"product_stock":    "✅ В наличии: %d шт.",
	"product_urgent":   "🔥 Осталось мало!",
	"product_out":      "❌ Нет в наличии",
	"product_list_in":  "✅ %s • %s • %d шт",
	"product_list_out": "❌ %s • %s • нет в наличии",
	"product_missing":  "Товар не найден.",
	"product_deleted":  "✅ Товар удалён.",
	"delete_confirm":   "🗑 <b>Удалить товар?</b>\n\n«%s»",
	"notify_thanks":    "🔔 Мы сообщим, когда товар появится.",
	"stock_available":  "🔔 <b>%s</b> снова в наличии! Успейте заказать.",
	"fav_added":        "⭐ Добавлено в избранное",
	"fav_removed":      "Убрано из избранного",
	"favorites_title":  "⭐ <b>Избранное</b>\n\nВыберите ноутбук:",
	"favorites_empty":  "⭐ В избранном пока пусто.",

	"order_start_hint":    "🛒 Откройте каталог, выберите ноутбук и нажмите «Заказать».",
	"order_checkout":      "🛒 <b>Оформление заказа</b>\n\n<i>%s</i>\n\n<b>Шаг 1/5</b> — введите ФИО:",
	"order_reorder":       "🔄 <b>Повторный заказ</b>\n\n<i>%s</i>\n\n<b>Шаг 1/5</b> — введите ФИО:",
	"order_fio_min":       "ФИО должно содержать минимум 3 символа. Попробуйте ещё раз:",
	"order_phone":         "<b>Шаг 2/5</b> — введите телефон или нажмите кнопку ниже.\n\n<i>%s</i>",
	"order_phone_invalid": "Номер телефона некорректен. Укажите минимум 9 цифр, например <code>+992901234567</code>:",
	"order_city":          "<b>Шаг 3/5</b> — введите город:\n\n<i>%s</i>",
	"order_city_min":      "Название города должно содержать минимум 2 символа:",
	"order_address":       "<b>Шаг 4/5</b> — введите адрес доставки:\n\n<i>%s</i>",
	"order_address_min":   "Адрес должен содержать минимум 5 символов:",
	"order_out_of_stock":  "😔 К сожалению, товар закончился. Можно подписаться на поступление или отменить заказ.",
	"order_session_reset": "Сессия заказа сброшена. Начните заново из каталога.",
	"order_created": "<b>Шаг 5/5</b> — оплата\n\n✅ Заказ <b>%s</b> создан.\n\n🖥 %s\n💰 %s\n\n" +
		"💳 Оплатите заказ по реквизитам и отправьте фото чека в этот чат.\n\n%s",
	"order_send_receipt_photo": "📷 Пожалуйста, отправьте <b>фото</b> чека об оплате.",
	"order_receipt_too_large":  "Файл слишком большой. Отправьте фото меньшего размера.",
	"order_thanks":             "✅ <b>Спасибо! Чек получен.</b> Мы проверим оплату и сообщим вам.",
	"order_cancel_done":        "❌ Оформление заказа отменено.",
	"order_not_found":          "Заказ не найден.",
	"order_paid":               "✅ <b>Заказ %s оплачен</b>\n\nСпасибо за оплату! Мы готовим ваш заказ к отправке.",
	"order_shipped":            "🚚 <b>Заказ %s отправлен</b>\n\nВаш заказ передан в доставку. Ожидайте звонка курьера.",
	"receipt_reminder":         "⏰ Напоминаем: по заказу %s мы ещё не получили чек об оплате. Отправьте фото чека в этот чат.",

	"my_orders_title": "📋 <b>Мои заказы</b>",
	"my_orders_empty": "📋 У вас пока нет заказов.",
	"my_orders_line":  "• <b>%s</b> — %s\n  📌 %s",
	"order_detail": "📄 <b>Заказ %s</b>\n\n<b>Статус:</b> %s\n<b>Товар:</b> %s\n<b>Цена:</b> %s\n<b>Дата:</b> %s\n\n" +
		"<b>Доставка:</b>\n📍 %s, %s\n👤 %s\n📱 %s",
	"order_payment_info": "\n\n<b>Реквизиты для оплаты:</b>\n%s",
	"product_placeholder": "Товар #%d",

	"faq": "❓ <b>Частые вопросы</b>\n\n" +
		"🚚 <b>Доставка:</b> по Душанбе 1-2 дня, по регионам 3-5 дней.\n\n" +
		"💳 <b>Оплата:</b> перевод по реквизитам, после оплаты отправьте фото чека.\n\n" +
		"📋 <b>Гарантия:</b> официальная гарантия производителя.",
	"contacts_title": "📞 <b>Контакты</b>",
	"contacts_none":  "Контакты поддержки пока не указаны.",
	"contact_phone":  "Телефон",
	"settings":       "⚙️ <b>Настройки</b>\n\nВыберите язык:",
	"lang_changed":   "✅ Язык изменён на русский.",

	"search_prompt":  "🔍 Введите название или характеристику ноутбука:",
	"search_short":   "Запрос должен содержать минимум 2 символа:",
	"search_empty":   "🔍 Ничего не найдено.",
	"search_results": "🔍 <b>Результаты поиска</b>\n\nВыберите ноутбук:",

	"review_prompt": "✍️ Напишите отзыв о заказе одним сообщением:",
	"review_thanks": "🙏 Спасибо за отзыв!",

	"ai_prompt":      "🤖 Задайте вопрос: для чего нужен ноутбук, какой бюджет?",
	"ai_short":       "Вопрос слишком короткий. Опишите подробнее:",
	"ai_unavailable": "🤖 AI-консультант сейчас недоступен. Попробуйте позже или посмотрите каталог.",
	"ai_answer":      "🤖 %s",
}

var tg = map[string]string{
	"welcome":         "👋 Салом, %s!",
	"welcome_no_name": "👋 Салом!",
	"welcome_sub":     "Мағозаи ноутбукҳо: бахшро дар поён интихоб кунед.",
	"main_menu":       "🏠 Менюи асосӣ",
	"cancel_done":     "❌ Амал бекор карда шуд.",
	"cancel_nothing":  "Чизе барои бекор кардан нест.",
	"unknown_input":   "Шуморо нафаҳмидам. Аз меню истифода баред.",
	"error_later":     "⚠️ Хатогӣ рух дод. Баъдтар кӯшиш кунед.",

	"btn_catalog":       "💻 Каталог",
	"btn_ai":            "🤖 Машваратчии AI",
	"btn_how_order":     "🛒 Чӣ тавр фармоиш диҳам",
	"btn_my_orders":     "📋 Фармоишҳои ман",
	"btn_contacts":      "📞 Тамос",
	"btn_favorites":     "⭐ Интихобшудаҳо",
	"btn_search":        "🔍 Ҷустуҷӯ",
	"btn_settings":      "⚙️ Танзимот",
	"btn_home":          "🏠 Менюи асосӣ",
	"btn_back":          "◀️ Бозгашт",
	"btn_send_phone":    "📱 Фиристодани рақам",
	"btn_last_address":  "📍 Суроғаи охирин",
	"btn_cancel_order":  "❌ Бекор кардани фармоиш",
	"btn_order_product": "🛒 Фармоиш додан",
	"btn_notify_stock":  "🔔 Хабар диҳед",
	"btn_review":        "⭐ Шарҳ гузоштан",
	"btn_reorder":       "🔄 Такрори фармоиш",

	"catalog_title":   "💻 <b>Каталог</b>\n\nКатегорияро интихоб кунед:",
	"product_stock":   "✅ Дар анбор: %d адад",
	"product_out":     "❌ Дар анбор нест",
	"product_missing": "Мол ёфт нашуд.",
	"notify_thanks":   "🔔 Ҳангоми пайдо шудани мол хабар медиҳем.",
	"stock_available": "🔔 <b>%s</b> боз дар анбор аст!",

	"order_checkout":           "🛒 <b>Фармоиш</b>\n\n<i>%s</i>\n\n<b>Қадами 1/5</b> — Ному насабро ворид кунед:",
	"order_fio_min":            "Ному насаб бояд на камтар аз 3 ҳарф бошад:",
	"order_phone":              "<b>Қадами 2/5</b> — рақами телефонро ворид кунед.\n\n<i>%s</i>",
	"order_phone_invalid":      "Рақами телефон нодуруст аст. На камтар аз 9 рақам, масалан <code>+992901234567</code>:",
	"order_city":               "<b>Қадами 3/5</b> — шаҳрро ворид кунед:\n\n<i>%s</i>",
	"order_city_min":           "Номи шаҳр бояд на камтар аз 2 ҳарф бошад:",
	"order_address":            "<b>Қадами 4/5</b> — суроғаи расониданро ворид кунед:\n\n<i>%s</i>",
	"order_address_min":        "Суроға бояд на камтар аз 5 ҳарф бошад:",
	"order_out_of_stock":       "😔 Мутаассифона, мол тамом шуд.",
	"order_send_receipt_photo": "📷 Лутфан <b>акси</b> чеки пардохтро фиристед.",
	"order_thanks":             "✅ <b>Ташаккур! Чек қабул шуд.</b>",
	"order_cancel_done":        "❌ Фармоиш бекор карда шуд.",
	"order_not_found":          "Фармоиш ёфт нашуд.",
	"order_paid":               "✅ <b>Фармоиши %s пардохт шуд</b>\n\nТашаккур барои пардохт!",
	"order_shipped":            "🚚 <b>Фармоиши %s фиристода шуд</b>\n\nИнтизори занги хаткашон бошед.",
	"receipt_reminder":         "⏰ Ёдрасӣ: барои фармоиши %s мо ҳанӯз чеки пардохтро нагирифтаем.",

	"my_orders_title": "📋 <b>Фармоишҳои ман</b>",
	"my_orders_empty": "📋 Шумо ҳоло фармоиш надоред.",
	"settings":        "⚙️ <b>Танзимот</b>\n\nЗабонро интихоб кунед:",
	"lang_changed":    "✅ Забон ба тоҷикӣ иваз шуд.",

	"search_prompt": "🔍 Номи ноутбукро ворид кунед:",
	"search_empty":  "🔍 Ҳеҷ чиз ёфт нашуд.",
	"review_prompt": "✍️ Шарҳи худро нависед:",
	"review_thanks": "🙏 Ташаккур барои шарҳ!",
	"ai_prompt":     "🤖 Саволи худро диҳед:",
}
