// Package entitlement предоставляет доступ к данным биллинга и профиля
// участника: активные подписки с лимитами тарифа и текущий пояс.
// Чтение идёт через кеш: данные меняются редко (платёж, аттестация),
// а запрашиваются при каждой проверке допуска.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/dojo-scheduler/internal/cache"
	"github.com/magabrotheeeer/dojo-scheduler/internal/lib/sl"
	"github.com/magabrotheeeer/dojo-scheduler/internal/models"
)

// Repository определяет методы хранилища для прав доступа участника.
type Repository interface {
	// GetActiveEntitlements возвращает активные подписки участника с лимитами.
	GetActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error)
	// GetMemberRank возвращает текущий пояс участника.
	GetMemberRank(ctx context.Context, memberID string) (string, error)
	// CountRegistered считает подтверждённые брони участника в интервале.
	CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

const cacheTTL = 5 * time.Minute

// Service реализует чтение прав доступа с кешированием.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service. cache может быть nil,
// тогда каждое чтение идёт в хранилище.
func New(repo Repository, c Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

// ActiveEntitlements возвращает активные подписки участника.
// Ошибки кеша не фатальны: при сбое чтение уходит в хранилище.
func (s *Service) ActiveEntitlements(ctx context.Context, memberID string) ([]models.Entitlement, error) {
	const op = "services.entitlement.ActiveEntitlements"

	key := cache.EntitlementsKey(memberID)
	if s.cache != nil {
		var cached []models.Entitlement
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("entitlements cache read failed", sl.Err(err), sl.Member(memberID))
		}
		if found {
			return cached, nil
		}
	}

	ents, err := s.repo.GetActiveEntitlements(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ents, cacheTTL); err != nil {
			s.log.Warn("entitlements cache write failed", sl.Err(err), sl.Member(memberID))
		}
	}
	return ents, nil
}

// MemberRank возвращает текущий пояс участника.
func (s *Service) MemberRank(ctx context.Context, memberID string) (string, error) {
	const op = "services.entitlement.MemberRank"

	key := cache.RankKey(memberID)
	if s.cache != nil {
		var cached string
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("rank cache read failed", sl.Err(err), sl.Member(memberID))
		}
		if found {
			return cached, nil
		}
	}

	rank, err := s.repo.GetMemberRank(ctx, memberID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rank, cacheTTL); err != nil {
			s.log.Warn("rank cache write failed", sl.Err(err), sl.Member(memberID))
		}
	}
	return rank, nil
}

// CountRegistered всегда читает хранилище: счётчики меняются каждым
// бронированием, кешировать их нельзя.
func (s *Service) CountRegistered(ctx context.Context, memberID string, from, to time.Time, courseIDs []int64) (int, error) {
	return s.repo.CountRegistered(ctx, memberID, from, to, courseIDs)
}

// Invalidate сбрасывает кеш участника после событий биллинга или аттестации.
func (s *Service) Invalidate(ctx context.Context, memberID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.EntitlementsKey(memberID)); err != nil {
		s.log.Warn("entitlements cache invalidate failed", sl.Err(err), sl.Member(memberID))
	}
	if err := s.cache.Invalidate(ctx, cache.RankKey(memberID)); err != nil {
		s.log.Warn("rank cache invalidate failed", sl.Err(err), sl.Member(memberID))
	}
}
