package bot

const (
	startButton = "🛒 Открыть магазин"
	shopButton  = "🛒 Перейти в магазин"

	startTemplate = `🎉 Добро пожаловать в 5ka Mini App, %s!

🛍️ Что можно делать:
- Найти ближайшие магазины Пятёрочка
- Просматривать каталог товаров
- Добавлять товары в корзину
- Оформлять заказы

Нажмите кнопку ниже, чтобы начать покупки!`

	shopText = "🛍️ Нажмите кнопку для перехода в магазин:"

	helpText = `📖 <b>Помощь по использованию 5ka Mini App</b>

<b>Команды:</b>
/start - Запуск бота и приветствие
/shop - Быстрый доступ к магазину
/help - Эта справка

<b>Как пользоваться:</b>
1. Нажмите "Открыть магазин"
2. Введите ваш адрес
3. Выберите ближайший магазин
4. Добавляйте товары в корзину
5. Оформите заказ

По вопросам пишите разработчику.`
)
