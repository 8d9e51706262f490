package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Locale    string    `json:"locale"`
	IP        string    `json:"ip"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the contact form. Website is a honeypot: humans never
// see the field, so a value means a bot.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website"`
	Locale  string `json:"-"`
	IP      string `json:"-"`
}

// IsSpam reports whether the honeypot was filled.
func (r *ContactRequest) IsSpam() bool {
	return strings.TrimSpace(r.Website) != ""
}

// Validate normalizes and checks the request.
//   - Name: 1-120 characters
//   - Email: valid format
//   - Message: 1-5000 characters
func (r *ContactRequest) Validate() error {
	r.Name = collapseSpace(r.Name)
	if n := utf8.RuneCountInString(r.Name); n < 1 || n > 120 {
		return fmt.Errorf("name must be between 1 and 120 characters")
	}

	r.Email = NormalizeEmail(r.Email)
	if !ValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}

	r.Message = strings.TrimSpace(r.Message)
	if n := utf8.RuneCountInString(r.Message); n < 1 || n > 5000 {
		return fmt.Errorf("message must be between 1 and 5000 characters")
	}

	return nil
}
