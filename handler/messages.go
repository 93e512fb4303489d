package handler

// User-facing replies.
const (
	msgGreeting = "Привет! Я помогаю писать плагины для Rust (uMod/Oxide) на C#.\n\n" +
		"• Напиши вопрос, и я отвечу.\n" +
		"• /generate <описание> создаст файл плагина с объяснением.\n" +
		"• Пришли .cs файл: без подписи я его проанализирую, " +
		"с подписью вроде «измени команду на /tp» внесу изменения."

	msgGenerateUsage  = "Укажи описание плагина после команды, например:\n/generate телепорт к другу по команде /tpr"
	msgUnknownCommand = "Неизвестная команда. Отправь /help, чтобы увидеть список команд."

	msgProcessing        = "Обрабатываю запрос..."
	msgGeneratingFile    = "Генерирую файл плагина..."
	msgExplaining        = "Готовлю объяснение кода..."
	msgEmptyResponse     = "Модель вернула пустой ответ. Попробуй переформулировать запрос."
	msgWrongExtension    = "Поддерживаются только файлы с расширением .cs."
	msgDocumentTooLarge  = "Файл слишком большой. Максимальный размер: %d КБ."
	msgDocumentNotText   = "Не удалось прочитать файл: он должен быть текстовым в кодировке UTF-8."
	msgDocumentDownload  = "Не удалось скачать файл. Попробуй отправить его ещё раз."
	msgChooseFormat      = "Изменения готовы. Как прислать результат?"
	msgChoiceText        = "Текстом"
	msgChoiceFile        = "Файлом"
	msgPendingExpired    = "Результат устарел или уже был отправлен. Пришли файл ещё раз."
	msgCallbackAccepted  = "Отправляю..."
	msgCallbackMalformed = "Неизвестное действие."
)
