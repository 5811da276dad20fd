package item

import "time"

type Item struct {
	ID          string
	Title       string
	Description string
	Image       *string
	LargeImage  *string
	Price       int
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateItemInput struct {
	Title       string
	Description string
	Price       int
	Image       *string
	LargeImage  *string
}

// UpdateItemInput carries only the fields to change; nil means untouched.
type UpdateItemInput struct {
	Title       *string
	Description *string
	Price       *int
	Image       *string
	LargeImage  *string
}

func (in UpdateItemInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Price == nil &&
		in.Image == nil && in.LargeImage == nil
}

type OrderBy string

const (
	OrderByCreatedAtDesc OrderBy = "createdAt_DESC"
	OrderByCreatedAtAsc  OrderBy = "createdAt_ASC"
	OrderByPriceAsc      OrderBy = "price_ASC"
	OrderByPriceDesc     OrderBy = "price_DESC"
	OrderByTitleAsc      OrderBy = "title_ASC"
	OrderByTitleDesc     OrderBy = "title_DESC"
)

var orderColumns = map[OrderBy]string{
	OrderByCreatedAtDesc: "created_at DESC",
	OrderByCreatedAtAsc:  "created_at ASC",
	OrderByPriceAsc:      "price ASC",
	OrderByPriceDesc:     "price DESC",
	OrderByTitleAsc:      "title ASC",
	OrderByTitleDesc:     "title DESC",
}

// Filter narrows a listing. Search matches title OR description; the
// *Contains fields must all match.
type Filter struct {
	Search              *string
	TitleContains       *string
	DescriptionContains *string
}

type Query struct {
	Filter  Filter
	OrderBy OrderBy
	Offset  int
	Limit   int
}
