package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Операция недопустима в текущей фазе матча. Сообщается вызывающей
	// стороне, автоматически не повторяется.
	ErrInvalidMatchPhase = errors.New("operation is not allowed in the current match phase")

	// Повторная заявка того же стрелка на ту же жертву в текущем раунде.
	// Для клиента это success-no-op: повтор по сети не создаёт вторую заявку.
	ErrDuplicateClaim = errors.New("claim already submitted for this victim in the current round")

	// Спорный случай уже закрыт; повторное решение с другим исходом запрещено.
	ErrAlreadyResolved = errors.New("conflict case is already resolved")

	// Мутирующий вызов без идентификатора судьи.
	ErrUnauthorized = errors.New("referee identity is required")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed  = errors.New("validation failed")
	ErrClaimFinal        = errors.New("claim is in a terminal status and cannot be changed")
	ErrResolutionInvalid = errors.New("resolution references claims outside the conflict case")
	ErrRosterInvalid     = errors.New("match rosters are invalid")
	ErrShooterNotInMatch = errors.New("shooter is not on either roster of the match")
	ErrVictimNotInMatch  = errors.New("victim is not on either roster of the match")
	ErrSelfClaim         = errors.New("shooter and victim must be different players")
	ErrDistanceInvalid   = errors.New("distance estimate must be non-negative")
	ErrNoRoundsRemaining = errors.New("all rounds have been played")
	ErrSettlementFailed  = errors.New("rating settlement failed")

	// Ошибки, специфичные для сущностей (404-эквивалент)
	ErrMatchNotFound    = errors.New("match not found")
	ErrClaimNotFound    = errors.New("claim not found")
	ErrConflictNotFound = errors.New("conflict case not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrRatingNotFound   = errors.New("rating record not found")
)
