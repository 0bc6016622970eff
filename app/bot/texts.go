package bot

import "time"

const (
	helpText = `🤖 *Бот расчёта оплат*

📝 *Команды:*
/sale - начать расчёт новой продажи
/pay - посмотреть предстоящие платежи
/cancel - отменить текущий расчёт
/help - показать эту справку

💰 *Тарифы комиссий:*
• Стартовый набор - 7%
• Расширение - 8%
• Масштаб - 10%
• Абсолют - 12%

Просто введите /sale и следуйте инструкциям!`

	payListHeader = "📅 *Предстоящие платежи:*\n\n"
	payListLegend = "\n🔴 Срочно (≤3 дней) | 🟡 Скоро (≤7 дней) | 🟢 Позже"
	payListEmpty  = "📋 Нет предстоящих платежей"
	payListFailed = "❌ Ошибка при загрузке данных о платежах"
)

// Ephemeral message lifetimes.
const (
	helpTTL    = 15 * time.Second
	payListTTL = 30 * time.Second
	noticeTTL  = 5 * time.Second
)
