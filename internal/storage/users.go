package storage

import (
	"errors"
	"fmt"
	"sort"

	"eve.evalgo.org/db"

	"github.com/sentra-video/sentra/models"
)

// ErrEmailTaken is returned when another user already owns the email.
var ErrEmailTaken = errors.New("storage: email already registered")

// SaveUser saves a user document to the database. Emails are unique
// across users; saving a new user with an existing email fails with
// ErrEmailTaken.
func (s *Storage) SaveUser(user *models.User) error {
	// Set JSON-LD context and type if not set
	if user.Context == "" {
		user.Context = defaultContext
	}
	if user.Type == "" {
		user.Type = TypeUser
	}

	existing, err := s.GetUserByEmail(user.Email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != user.ID {
		return ErrEmailTaken
	}

	resp, err := s.service.SaveGenericDocument(user)
	if err != nil {
		if couchErr, ok := err.(*db.CouchDBError); ok && couchErr.IsConflict() {
			current, getErr := s.GetUser(user.ID)
			if getErr == nil {
				user.Rev = current.Rev
				resp, err = s.service.SaveGenericDocument(user)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	user.Rev = resp.Rev
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.service.GetGenericDocument(id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, or nil when no user owns it.
func (s *Storage) GetUserByEmail(email string) (*models.User, error) {
	query := db.NewQueryBuilder().
		Where("@type", "$eq", TypeUser).
		And().
		Where("email", "$eq", email).
		Build()

	users, err := db.FindTyped[models.User](s.service, query)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// ListUsers retrieves all users sorted by email.
func (s *Storage) ListUsers() ([]*models.User, error) {
	query := db.NewQueryBuilder().
		Where("@type", "$eq", TypeUser).
		Build()

	users, err := db.FindTyped[models.User](s.service, query)
	if err != nil {
		return nil, err
	}

	result := make([]*models.User, len(users))
	for i := range users {
		result[i] = &users[i]
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})

	return result, nil
}

// DeleteUser deletes a user by ID.
func (s *Storage) DeleteUser(id string) error {
	user, err := s.GetUser(id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.service.DeleteDocument(id, user.Rev); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
