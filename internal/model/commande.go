package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout — формат даты заказа (dd/MM/yyyy), в котором клиенты передают dateCommande
// и по которому строится выборка "заказы на сегодня"
const DateLayout = "02/01/2006"

// Commande представляет заказ столовой со всеми выбранными позициями
// имена json-полей фиксированы: один и тот же вид записи уходит
// и в CRUD-ответах, и в данных SSE-событий
// теги validate используются для проверки корректности данных при получении
type Commande struct {
	ID           string `json:"id"`
	ClientDate   string `json:"clientDate"`
	Client       string `json:"client" validate:"required"`
	DateCommande string `json:"dateCommande" validate:"required"`

	Menu            string   `json:"menu"`
	Plat            string   `json:"plat"`
	Pain            string   `json:"pain"`
	Ingredient      string   `json:"ingredient"`
	Accompagnements []string `json:"accompagnements"`
	Dessert         string   `json:"dessert"`
	Complement      string   `json:"complement"`
	Boisson         string   `json:"boisson"`
	Traitee         bool     `json:"traitee"`

	// аудит-поля и счётчик версии проставляются только слоем хранилища,
	// значения из входящих payload-ов игнорируются
	CreatedBy   string    `json:"createdBy"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedBy   string    `json:"updatedBy"`
	UpdatedDate time.Time `json:"updatedDate"`
	Version     int64     `json:"version"`
}

var validate = validator.New()

// Validate проверяет корректность структуры Commande на основе тегов validate
func (c *Commande) Validate() error {
	return validate.Struct(c)
}

// Key возвращает бизнес-ключ clientDate
// если клиент его не передал, ключ выводится из имени клиента и даты заказа
func (c *Commande) Key() string {
	if c.ClientDate != "" {
		return c.ClientDate
	}
	return c.Client + c.DateCommande
}
