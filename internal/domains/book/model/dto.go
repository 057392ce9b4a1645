package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type CreateBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (r *CreateBookRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Author,
			validation.Required.Error("author is required"),
			validation.Length(1, 255),
		),
	)
}

// AdjustStockRequest adds (or removes, when negative) shelf copies.
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

func (r AdjustStockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Delta,
			validation.Required.Error("delta must be a non-zero integer"),
			validation.Min(-10000), validation.Max(10000),
		),
	)
}
