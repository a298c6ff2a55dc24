package domain

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// publicCodeLength is the number of digits in an identity's public code.
const publicCodeLength = 10

// Identity is a registered person. It owns exactly one Account, zero-or-one
// Credential, and zero-or-many SavingsGoals. Immutable after registration
// except trivial profile fields.
type Identity struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate time.Time `json:"birth_date"`

	// PublicCode is the stable identifier shared with others to receive
	// transfers. Globally unique.
	PublicCode string `json:"public_code"`

	CreatedAt time.Time `json:"created_at"`
}

// NewIdentity creates a registered identity with a fresh id and public code.
func NewIdentity(firstName, lastName string, birthDate time.Time) *Identity {
	return &Identity{
		ID:         uuid.New(),
		FirstName:  firstName,
		LastName:   lastName,
		BirthDate:  birthDate,
		PublicCode: GeneratePublicCode(),
		CreatedAt:  time.Now().UTC(),
	}
}

// FullName returns the display name used in transaction history entries.
func (i *Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}

// Age returns the identity's age in whole years at the given time.
func (i *Identity) Age(now time.Time) int {
	years := now.Year() - i.BirthDate.Year()
	anniversary := i.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// IsAdult reports whether the identity is at least 18 years old.
func (i *Identity) IsAdult(now time.Time) bool {
	return i.Age(now) >= 18
}

// GeneratePublicCode returns a random 10-digit code. Uniqueness is enforced
// at the persistence boundary; callers retry on collision.
func GeneratePublicCode() string {
	var b [publicCodeLength]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure means the process cannot do anything useful.
		panic(fmt.Sprintf("domain: reading random bytes: %v", err))
	}
	code := make([]byte, publicCodeLength)
	for i, v := range b {
		code[i] = '0' + v%10
	}
	return string(code)
}

// Credential holds an identity's login and transaction secrets. Secrets are
// stored only as irreversible salted hashes; the plaintext never leaves the
// registration or validation call.
type Credential struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`

	PasswordHash string `json:"-"`
	PINHash      string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
