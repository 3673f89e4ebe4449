package core

import (
	"errors"
	"time"
	"unicode/utf8"
)

const (
	CategoryDining    Category = "餐飲"
	CategoryTransport Category = "交通"
	CategoryShopping  Category = "購物"
	CategoryHousing   Category = "住房"
	CategoryLeisure   Category = "娛樂"
)

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DateLayout is the only date format records carry.
const DateLayout = "2006-01-02"

// MaxNoteRunes caps the free-text note of a record.
const MaxNoteRunes = 200

type (
	Category string

	Role string

	Message struct {
		Role    Role   `json:"role"`
		Content string `json:"content"`
	}

	// Conversation is an ordered message sequence handed to a generator once.
	Conversation []Message

	// Record is the normalized output of an extraction. Nil fields mean the
	// value could not be resolved.
	Record struct {
		Date     *string   `json:"date"`
		Amount   *float64  `json:"amount"`
		Category *Category `json:"category"`
		Note     string    `json:"note"`
	}

	// Expense is a persisted record.
	Expense struct {
		ID        int64     `json:"id"`
		Date      string    `json:"date"`
		Amount    float64   `json:"amount"`
		Category  Category  `json:"category"`
		Note      string    `json:"note"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrMissingDate     = errors.New("missing date")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingAmount   = errors.New("missing amount")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
)

var categories = []Category{
	CategoryDining,
	CategoryTransport,
	CategoryShopping,
	CategoryHousing,
	CategoryLeisure,
}

// Categories returns the closed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory reports whether v is a string that exactly names a member
// of the category set.
func ParseCategory(v any) (Category, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string {
	return string(c)
}

// Valid reports whether c belongs to the category set.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// Complete checks that the record carries everything needed to be stored.
func (r Record) Complete() error {
	if r.Date == nil || *r.Date == "" {
		return ErrMissingDate
	}
	if _, err := time.Parse(DateLayout, *r.Date); err != nil {
		return ErrInvalidDate
	}
	if r.Amount == nil {
		return ErrMissingAmount
	}
	if *r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.Category == nil || !r.Category.Valid() {
		return ErrMissingCategory
	}
	return nil
}

// TruncateNote cuts s to MaxNoteRunes runes.
func TruncateNote(s string) string {
	if utf8.RuneCountInString(s) <= MaxNoteRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxNoteRunes])
}

// ValidDate reports whether s is a calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
