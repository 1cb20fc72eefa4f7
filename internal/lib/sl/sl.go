// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
// Удобно использовать в логировании для единообразного вывода ошибок.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Member возвращает slog.Attr с идентификатором участника.
func Member(id string) slog.Attr {
	return slog.String("member_id", id)
}

// Session возвращает slog.Attr с идентификатором занятия.
func Session(id int64) slog.Attr {
	return slog.Int64("session_id", id)
}
