package access

import (
	"errors"

	"github.com/napzon/napzon-shop/internal/domain/models"
)

var (
	ErrUnauthenticated = errors.New("actor is not authenticated")
	ErrWrongRole       = errors.New("operation is not allowed for this role")
	ErrNotOwner        = errors.New("actor does not own the target")
)

// Actor — пара (id, роль), которую устанавливает сессионный слой (JWT middleware)
type Actor struct {
	ID   int64
	Role string
}

// Operation — операция, на которую запрашивается доступ
type Operation string

const (
	OpProductCreate  Operation = "product:create"
	OpProductUpdate  Operation = "product:update"
	OpProductDelete  Operation = "product:delete"
	OpProductManage  Operation = "product:manage"
	OpOrderSetStatus Operation = "order:set_status"
	OpOrderManage    Operation = "order:manage"
	OpStatsView      Operation = "stats:view"
	OpCheckout       Operation = "order:checkout"
)

// операции, доступные только продавцу
var sellerOnly = map[Operation]bool{
	OpProductCreate:  true,
	OpProductUpdate:  true,
	OpProductDelete:  true,
	OpProductManage:  true,
	OpOrderSetStatus: true,
	OpOrderManage:    true,
	OpStatsView:      true,
}

// Authorize — чистая функция авторизации, без побочных эффектов.
// targetOwnerID передаётся для мутаций над чужими объектами (0 — владение не проверяется).
// Проверка владения здесь не заменяет составной фильтр (id, seller_id) на уровне
// хранилища: между чтением и записью владелец может смениться
func Authorize(actor Actor, op Operation, targetOwnerID int64) error {
	if actor.ID == 0 || actor.Role == "" {
		return ErrUnauthenticated
	}
	if sellerOnly[op] && actor.Role != models.RoleSeller {
		return ErrWrongRole
	}
	if op == OpCheckout && actor.Role != models.RoleBuyer {
		return ErrWrongRole
	}
	if targetOwnerID != 0 && targetOwnerID != actor.ID {
		return ErrNotOwner
	}
	return nil
}
