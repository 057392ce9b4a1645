package model

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog item. Stock counts the copies on the shelf right now;
// copies held by accounts are not included.
type Book struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookDetail is the public view of a book.
type BookDetail struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	Stock  int       `json:"stock"`
}

func (b *Book) ToDetail() BookDetail {
	return BookDetail{ID: b.ID, Title: b.Title, Author: b.Author, Stock: b.Stock}
}

func ToDetails(books []Book) []BookDetail {
	out := make([]BookDetail, 0, len(books))
	for i := range books {
		out = append(out, books[i].ToDetail())
	}
	return out
}
