package http

// User-facing texts; the Mini App is Russian-only.
const (
	msgBadRequest      = "Некорректный запрос"
	msgAddressSet      = "Адрес установлен"
	msgAddressFailed   = "Ошибка обработки адреса"
	msgSessionNotFound = "Адрес не установлен"
	msgSessionFailed   = "Ошибка загрузки адреса"
	msgAddToCartFailed = "Ошибка добавления в корзину"
	msgCartCleared     = "Корзина очищена"
	msgClearCartFailed = "Ошибка очистки корзины"
	msgInternalError   = "Внутренняя ошибка сервера"
)
