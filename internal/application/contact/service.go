package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contacts-api/internal/domain"
	"github.com/contacts-api/internal/pkg/id"
)

const birthDateLayout = "2006-01-02"

// Page is one page of a user's contacts. NextCursor is opaque; an empty
// value means the listing is exhausted.
type Page struct {
	Contacts   []domain.Contact `json:"contacts"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type Service interface {
	Create(ctx context.Context, userID string, req domain.ContactRequest) (*domain.Contact, error)
	Get(ctx context.Context, userID, contactID string) (*domain.Contact, error)
	List(ctx context.Context, userID string, limit int32, cursor string) (*Page, error)
	Update(ctx context.Context, userID, contactID string, req domain.ContactRequest) (*domain.Contact, error)
	Delete(ctx context.Context, userID, contactID string) error
	Search(ctx context.Context, userID, query string) ([]domain.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID string) ([]domain.Contact, error)
}

type contactStore interface {
	Put(ctx context.Context, c *domain.Contact) error
	GetForUser(ctx context.Context, contactID, userID string) (*domain.Contact, error)
	QueryByUser(ctx context.Context, userID string, limit int32, cursor string) ([]domain.Contact, string, error)
	AllByUser(ctx context.Context, userID string) ([]domain.Contact, error)
	Update(ctx context.Context, contactID string, updates map[string]interface{}) error
	Delete(ctx context.Context, contactID string) error
}

type service struct {
	contacts contactStore
	now      func() time.Time
}

func NewService(contacts contactStore) Service {
	return &service{contacts: contacts, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID string, req domain.ContactRequest) (*domain.Contact, error) {
	if err := validBirthDate(req.BirthDate); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &domain.Contact{
		ContactID:  id.New(),
		UserID:     userID,
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
		Email:      req.Email,
		Phone:      req.Phone,
		BirthDate:  req.BirthDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.contacts.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, userID, contactID string) (*domain.Contact, error) {
	return s.contacts.GetForUser(ctx, contactID, userID)
}

func (s *service) List(ctx context.Context, userID string, limit int32, cursor string) (*Page, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	contacts, next, err := s.contacts.QueryByUser(ctx, userID, limit, cursor)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return &Page{Contacts: contacts, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, userID, contactID string, req domain.ContactRequest) (*domain.Contact, error) {
	if err := validBirthDate(req.BirthDate); err != nil {
		return nil, err
	}
	// Ownership check before the write; the repo update is by contact_id only.
	if _, err := s.contacts.GetForUser(ctx, contactID, userID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"first_name":  req.FirstName,
		"second_name": req.SecondName,
		"email":       req.Email,
		"phone":       req.Phone,
		"birth_date":  req.BirthDate,
	}
	if err := s.contacts.Update(ctx, contactID, updates); err != nil {
		return nil, err
	}
	return s.contacts.GetForUser(ctx, contactID, userID)
}

func (s *service) Delete(ctx context.Context, userID, contactID string) error {
	if _, err := s.contacts.GetForUser(ctx, contactID, userID); err != nil {
		return err
	}
	return s.contacts.Delete(ctx, contactID)
}

// Search matches query case-insensitively against first name, second name
// and email. Contacts live behind a key-value store, so filtering happens
// here over the user's full set.
func (s *service) Search(ctx context.Context, userID, query string) ([]domain.Contact, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("empty search query: %w", domain.ErrBadRequest)
	}
	all, err := s.contacts.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched := []domain.Contact{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.FirstName), q) ||
			strings.Contains(strings.ToLower(c.SecondName), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// UpcomingBirthdays returns contacts whose birthday (month and day) falls
// between today and today+7 inclusive. The birth year is ignored.
func (s *service) UpcomingBirthdays(ctx context.Context, userID string) ([]domain.Contact, error) {
	all, err := s.contacts.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.now().UTC()
	window := make(map[string]bool, 8)
	for i := 0; i <= 7; i++ {
		d := today.AddDate(0, 0, i)
		window[d.Format("01-02")] = true
	}
	matched := []domain.Contact{}
	for _, c := range all {
		bd, err := time.Parse(birthDateLayout, c.BirthDate)
		if err != nil {
			continue // unparseable dates never match
		}
		if window[bd.Format("01-02")] {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func validBirthDate(s string) error {
	if _, err := time.Parse(birthDateLayout, s); err != nil {
		return fmt.Errorf("birth_date must be YYYY-MM-DD: %w", domain.ErrBadRequest)
	}
	return nil
}
