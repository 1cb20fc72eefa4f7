// Package repository реализует хранилище данных на основе PostgreSQL
// для расписания занятий: шаблоны, сессии, ростер и факты посещения.
// Критичные операции (бронирование, отмена с продвижением из листа
// ожидания, отметка посещения) выполняются в коротких однозаписных
// транзакциях с блокировкой строки сессии, чтобы проверка вместимости
// и вставка были атомарны относительно конкурентных запросов.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'sessions'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table sessions missing or query error: %w", err)
	}
	return nil
}

// isUniqueViolation сообщает, что ошибка — нарушение уникального
// ограничения constraint (пустая строка — любого).
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" &&
			(constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// isForeignKeyViolation сообщает, что ошибка — нарушение внешнего
// ключа constraint (пустая строка — любого).
func isForeignKeyViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" &&
			(constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}
