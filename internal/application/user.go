package app

import (
	"context"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) error {
		u.SetState(state)
		return nil
	})
}

// BeginReport начинает сценарий: сначала геопозиция, потом фото
func (s *UserService) BeginReport(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingLocation)
}

// SetLocation запоминает геопозицию и переводит к ожиданию фото
func (s *UserService) SetLocation(ctx context.Context, userID, chatID int64, loc entity.Location) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) error {
		if err := loc.Validate(); err != nil {
			return err
		}
		u.SetLocation(loc)
		u.SetState(entity.StateAwaitingPhoto)
		return nil
	})
}

// StartProcessing забирает сохранённую геопозицию и помечает пользователя занятым
func (s *UserService) StartProcessing(ctx context.Context, userID, chatID int64) (*entity.User, *entity.Location, error) {
	var loc *entity.Location
	user, err := s.update(ctx, userID, chatID, func(u *entity.User) error {
		loc = u.TakeLocation()
		u.SetState(entity.StateProcessing)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return user, loc, nil
}

// Finish возвращает пользователя в главное меню
func (s *UserService) Finish(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// Cancel сбрасывает сценарий вместе с геопозицией
func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) error {
		u.TakeLocation()
		u.SetState(entity.StateMainMenu)
		return nil
	})
}

func (s *UserService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.setSubscribed(ctx, userID, chatID, true)
}

func (s *UserService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.setSubscribed(ctx, userID, chatID, false)
}

// Subscribers пользователи, получающие уведомления о новых ямах
func (s *UserService) Subscribers(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListSubscribed(ctx)
}

func (s *UserService) setSubscribed(ctx context.Context, userID, chatID int64, on bool) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) error {
		u.Subscribed = on
		return nil
	})
}

func (s *UserService) update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
