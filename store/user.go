package store

import (
	"context"
)

type User struct {
	Username     string
	Nickname     string
	PasswordHash string
	RowStatus    RowStatus
	CreatedTs    int64
	UpdatedTs    int64
	ID           int32
}

type FindUser struct {
	ID        *int32
	Username  *string
	RowStatus *RowStatus
}

type UpdateUser struct {
	Nickname     *string
	PasswordHash *string
	RowStatus    *RowStatus
	UpdatedTs    *int64
	ID           int32
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// GetUser returns a single user matching find, or nil when none matches.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Username == nil && find.RowStatus == nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
	}

	users, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}

	user := users[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func userCacheKey(id int32) string {
	return "user/" + itoa(id)
}
