package domain

import "time"

type Contact struct {
	ContactID  string    `json:"id" dynamodbav:"contact_id"`
	UserID     string    `json:"-" dynamodbav:"user_id"`
	FirstName  string    `json:"first_name" dynamodbav:"first_name"`
	SecondName string    `json:"second_name" dynamodbav:"second_name"`
	Email      string    `json:"email" dynamodbav:"email"`
	Phone      string    `json:"phone" dynamodbav:"phone"`
	BirthDate  string    `json:"birth_date" dynamodbav:"birth_date"` // YYYY-MM-DD
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

type ContactRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	SecondName string `json:"second_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	BirthDate  string `json:"birth_date" validate:"required"` // YYYY-MM-DD
}
