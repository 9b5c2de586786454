package engine

// Built-in commands and labels handled ahead of the graph.
const (
	CommandStart      = "/start"
	ButtonBackToStart = "⬅️ В начало"
)

// Fixed user-facing texts. Localization is out of scope; the service speaks
// Russian like the flow definition it interprets.
const (
	msgWelcome        = "Добро пожаловать в GTClub File Service!"
	msgUnsubscribed   = "Вы отписались. Чтобы подписаться снова — напишите «Согласен»."
	msgConsentNoted   = "Спасибо, отмечено ✅"
	msgFieldRequired  = "Это поле обязательно. Введите значение."
	msgInvalidValue   = "Значение не прошло проверку. Попробуйте снова."
	msgNotUnderstood  = "Не понял команду. Выберите кнопку или используйте /help."
	msgDeliveryFailed = "Не удалось отправить документ: "
)
