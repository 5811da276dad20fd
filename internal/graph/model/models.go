package model

type SuccessMessage struct {
	Message *string
}

type AggregateItem struct {
	Count int64
}

type ItemConnection struct {
	Aggregate *AggregateItem
}

type ItemWhereInput struct {
	Search              *string
	TitleContains       *string
	DescriptionContains *string
}

type ItemWhereUniqueInput struct {
	ID string
}

type CreateItemInput struct {
	Title       string
	Description string
	Price       int
	Image       *string
	LargeImage  *string
}

type UpdateItemInput struct {
	ID          string
	Title       *string
	Description *string
	Price       *int
	Image       *string
	LargeImage  *string
}
