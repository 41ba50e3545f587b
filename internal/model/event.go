package model

// CrudAction — тег CRUD-действия, с которым запись уходит подписчикам живой ленты
type CrudAction string

const (
	ActionCreate CrudAction = "CREATE"
	ActionRead   CrudAction = "READ"
	ActionUpdate CrudAction = "UPDATE"
	ActionDelete CrudAction = "DELETE"
)

// EntityCrudAction — конверт события мутации: полная копия записи на момент
// публикации плюс тег действия
// конверт неизменяем после создания и нигде не хранится после доставки
type EntityCrudAction struct {
	Entity Commande   `json:"entity"`
	Action CrudAction `json:"action"`
}
