package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asquebay/cantine-order-service/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// код ошибки PostgreSQL для нарушения уникальности
const uniqueViolationCode = "23505"

var (
	// ErrCommandeNotFound возвращается, если заказ не найден в БД
	ErrCommandeNotFound = errors.New("commande not found")
	// ErrCommandeConflict возвращается при нарушении уникальности client_date
	// или при конфликте версий (запись была изменена кем-то другим)
	ErrCommandeConflict = errors.New("commande conflict")
)

// systemActor — значение аудит-полей createdBy/updatedBy
// в сервисе нет аутентификации, поэтому актор всегда один
const systemActor = "system"

// CommandeRepository инкапсулирует логику работы с заказами в БД
// только этот слой проставляет id, аудит-поля и версию записи
type CommandeRepository struct {
	db *pgxpool.Pool
	sq squirrel.StatementBuilderType
}

// NewCommandeRepository создает новый экземпляр репозитория
func NewCommandeRepository(db *pgxpool.Pool) *CommandeRepository {
	return &CommandeRepository{
		db: db,
		// использую плейсхолдеры в стиле PostgreSQL ($1, $2, $3,...)
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert сохраняет новый заказ и возвращает его сохранённую форму
// id, аудит-поля и версия назначаются здесь; значения из payload игнорируются
func (r *CommandeRepository) Insert(ctx context.Context, commande model.Commande) (model.Commande, error) {
	const op = "repository.postgres.commande.Insert"

	now := time.Now().UTC()
	stored := commande
	stored.ID = uuid.NewString()
	stored.ClientDate = commande.Key()
	stored.Accompagnements = normalizedAccompagnements(commande.Accompagnements)
	stored.CreatedBy = systemActor
	stored.CreatedDate = now
	stored.UpdatedBy = systemActor
	stored.UpdatedDate = now
	stored.Version = 0

	sql, args, err := r.sq.Insert("commandes").
		Columns(
			"id", "client_date", "client", "date_commande", "menu", "plat", "pain",
			"ingredient", "accompagnements", "dessert", "complement", "boisson", "traitee",
			"created_by", "created_at", "updated_by", "updated_at", "version",
		).
		Values(
			stored.ID, stored.ClientDate, stored.Client, stored.DateCommande, stored.Menu,
			stored.Plat, stored.Pain, stored.Ingredient, stored.Accompagnements, stored.Dessert,
			stored.Complement, stored.Boisson, stored.Traitee,
			stored.CreatedBy, stored.CreatedDate, stored.UpdatedBy, stored.UpdatedDate, stored.Version,
		).
		ToSql()
	if err != nil {
		return model.Commande{}, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.Commande{}, fmt.Errorf("%s: %w", op, ErrCommandeConflict)
		}
		return model.Commande{}, fmt.Errorf("%s: failed to insert commande: %w", op, err)
	}

	return stored, nil
}

// Save полностью перезаписывает заказ с проверкой версии
// при несовпадении версии (запись успела измениться) возвращает ErrCommandeConflict
func (r *CommandeRepository) Save(ctx context.Context, commande model.Commande) (model.Commande, error) {
	const op = "repository.postgres.commande.Save"

	if commande.ID == "" {
		return model.Commande{}, fmt.Errorf("%s: %w", op, ErrCommandeNotFound)
	}

	now := time.Now().UTC()
	stored := commande
	stored.ClientDate = commande.Key()
	stored.Accompagnements = normalizedAccompagnements(commande.Accompagnements)
	stored.UpdatedBy = systemActor
	stored.UpdatedDate = now
	stored.Version = commande.Version + 1

	sql, args, err := r.sq.Update("commandes").
		Set("client_date", stored.ClientDate).
		Set("client", stored.Client).
		Set("date_commande", stored.DateCommande).
		Set("menu", stored.Menu).
		Set("plat", stored.Plat).
		Set("pain", stored.Pain).
		Set("ingredient", stored.Ingredient).
		Set("accompagnements", stored.Accompagnements).
		Set("dessert", stored.Dessert).
		Set("complement", stored.Complement).
		Set("boisson", stored.Boisson).
		Set("traitee", stored.Traitee).
		Set("updated_by", stored.UpdatedBy).
		Set("updated_at", stored.UpdatedDate).
		Set("version", stored.Version).
		Where(squirrel.Eq{"id": commande.ID, "version": commande.Version}).
		ToSql()
	if err != nil {
		return model.Commande{}, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.Commande{}, fmt.Errorf("%s: %w", op, ErrCommandeConflict)
		}
		return model.Commande{}, fmt.Errorf("%s: failed to update commande: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		// ни одной строки: либо записи нет, либо версия устарела
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM commandes WHERE id = $1)`, commande.ID,
		).Scan(&exists); err != nil {
			return model.Commande{}, fmt.Errorf("%s: failed to check existence: %w", op, err)
		}
		if !exists {
			return model.Commande{}, fmt.Errorf("%s: %w", op, ErrCommandeNotFound)
		}
		return model.Commande{}, fmt.Errorf("%s: stale version %d: %w", op, commande.Version, ErrCommandeConflict)
	}

	return stored, nil
}

// Delete удаляет заказ по id без мягкого удаления
func (r *CommandeRepository) Delete(ctx context.Context, commande model.Commande) error {
	const op = "repository.postgres.commande.Delete"

	sql, args, err := r.sq.Delete("commandes").
		Where(squirrel.Eq{"id": commande.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to delete commande: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrCommandeNotFound)
	}

	return nil
}

// selectColumns — единый список колонок для всех выборок,
// порядок согласован со scanCommande
const selectColumns = `
	id, client_date, client, date_commande, menu, plat, pain, ingredient,
	accompagnements, dessert, complement, boisson, traitee,
	created_by, created_at, updated_by, updated_at, version
`

// FindAll извлекает все заказы из базы данных
// используется для листинга и восстановления кэша при старте
func (r *CommandeRepository) FindAll(ctx context.Context) ([]model.Commande, error) {
	const op = "repository.postgres.commande.FindAll"

	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM commandes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query commandes: %w", op, err)
	}
	defer rows.Close()

	return collectCommandes(op, rows)
}

// FindByClientDate извлекает один заказ по его бизнес-ключу
func (r *CommandeRepository) FindByClientDate(ctx context.Context, clientDate string) (model.Commande, error) {
	const op = "repository.postgres.commande.FindByClientDate"

	row := r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM commandes WHERE client_date = $1`, clientDate)

	commande, err := scanCommande(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Commande{}, fmt.Errorf("%s: %w", op, ErrCommandeNotFound)
		}
		return model.Commande{}, fmt.Errorf("%s: failed to query commande: %w", op, err)
	}

	return commande, nil
}

// FindByDateCommande извлекает все заказы на указанную дату
// порядок выборки детерминирован: он же сохраняется в снимке живой ленты
func (r *CommandeRepository) FindByDateCommande(ctx context.Context, dateCommande string) ([]model.Commande, error) {
	const op = "repository.postgres.commande.FindByDateCommande"

	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM commandes WHERE date_commande = $1 ORDER BY created_at`, dateCommande)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query commandes: %w", op, err)
	}
	defer rows.Close()

	return collectCommandes(op, rows)
}

// rowScanner покрывает pgx.Row и pgx.Rows общим контрактом Scan
// normalizedAccompagnements заменяет nil-срез на пустой:
// pgx кодирует nil []string как SQL NULL, а колонка accompagnements объявлена NOT NULL
func normalizedAccompagnements(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommande(row rowScanner) (model.Commande, error) {
	var c model.Commande
	err := row.Scan(
		&c.ID, &c.ClientDate, &c.Client, &c.DateCommande, &c.Menu, &c.Plat, &c.Pain, &c.Ingredient,
		&c.Accompagnements, &c.Dessert, &c.Complement, &c.Boisson, &c.Traitee,
		&c.CreatedBy, &c.CreatedDate, &c.UpdatedBy, &c.UpdatedDate, &c.Version,
	)
	return c, err
}

func collectCommandes(op string, rows pgx.Rows) ([]model.Commande, error) {
	commandes := []model.Commande{}
	for rows.Next() {
		c, err := scanCommande(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan commande row: %w", op, err)
		}
		commandes = append(commandes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}

	return commandes, nil
}
