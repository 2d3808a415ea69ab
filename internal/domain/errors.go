package domain

import "errors"

var (
	// ErrNotFound возвращается когда запись не найдена
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrCredentialsNotFound возвращается когда у пользователя нет подключенного брокера
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrTokenExpired возвращается когда access token истек и refresh невозможен
	ErrTokenExpired = errors.New("access token expired")

	// ErrAutoExecuteDisabled возвращается когда авто-исполнение выключено пользователем
	ErrAutoExecuteDisabled = errors.New("auto execute disabled")

	// ErrOrderTerminal возвращается при попытке изменить финализированный ордер
	ErrOrderTerminal = errors.New("order already in terminal status")
)
