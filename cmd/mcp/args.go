package main

// Argument types for the MCP tools. Optional numbers are pointers so an
// omitted value stays absent instead of becoming zero.

type userIDArgs struct {
	UserID string `json:"user_id" description:"User id" required:"true"`
}

type productIDArgs struct {
	ProductID string `json:"product_id" description:"Product id" required:"true"`
}

type createUserArgs struct {
	Name  string `json:"name" description:"Full name" required:"true"`
	Email string `json:"email" description:"Email address" required:"true"`
	Phone string `json:"phone,omitempty" description:"Phone number"`
	Age   *int   `json:"age,omitempty" description:"Age in years"`
}

type listUsersArgs struct {
	ID     string `json:"id,omitempty" description:"Substring of the user id"`
	Name   string `json:"name,omitempty" description:"Substring of the name"`
	Email  string `json:"email,omitempty" description:"Substring of the email"`
	AgeMin *int   `json:"age_min,omitempty" description:"Minimum age"`
	AgeMax *int   `json:"age_max,omitempty" description:"Maximum age"`
	SortBy string `json:"sort_by,omitempty" description:"Field to sort by"`
	Order  string `json:"order,omitempty" description:"asc or desc"`
	Limit  *int   `json:"limit,omitempty" description:"Maximum number of results"`
}

type updateUserArgs struct {
	UserID string  `json:"user_id" description:"User id" required:"true"`
	Name   *string `json:"name,omitempty" description:"Full name"`
	Email  *string `json:"email,omitempty" description:"Email address"`
	Phone  *string `json:"phone,omitempty" description:"Phone number"`
	Age    *int    `json:"age,omitempty" description:"Age in years"`
}

type batchCreateUsersArgs struct {
	Users []createUserArgs `json:"users" description:"Users to create" required:"true"`
}

type userOperationData struct {
	UserID string  `json:"user_id,omitempty" description:"Target user of update and delete"`
	Name   *string `json:"name,omitempty" description:"Full name"`
	Email  *string `json:"email,omitempty" description:"Email address"`
	Phone  *string `json:"phone,omitempty" description:"Phone number"`
	Age    *int    `json:"age,omitempty" description:"Age in years"`
}

type userOperationArgs struct {
	Action string            `json:"action" description:"create, update or delete" required:"true"`
	Data   userOperationData `json:"data" description:"User fields and user_id"`
}

type batchUserOperationsArgs struct {
	Operations []userOperationArgs `json:"operations" description:"Operations to apply in order" required:"true"`
}

type productFields struct {
	Description string `json:"description,omitempty" description:"Description"`
	Category    string `json:"category,omitempty" description:"Category"`
	PieceType   string `json:"piece_type,omitempty" description:"Piece type"`
	Color       string `json:"color,omitempty" description:"Color"`
	Size        string `json:"size,omitempty" description:"Size"`
	Collection  string `json:"collection,omitempty" description:"Collection"`
	Brand       string `json:"brand,omitempty" description:"Brand"`
}

type createProductArgs struct {
	Name          string  `json:"name" description:"Product name" required:"true"`
	Price         float64 `json:"price" description:"Unit price, not negative" required:"true"`
	StockQuantity *int    `json:"stock_quantity,omitempty" description:"Units in stock"`
	productFields
}

type updateProductArgs struct {
	ProductID     string   `json:"product_id" description:"Product id" required:"true"`
	Name          *string  `json:"name,omitempty" description:"Product name"`
	Price         *float64 `json:"price,omitempty" description:"Unit price, not negative"`
	StockQuantity *int     `json:"stock_quantity,omitempty" description:"Units in stock"`
	Description   *string  `json:"description,omitempty" description:"Description"`
	Category      *string  `json:"category,omitempty" description:"Category"`
	PieceType     *string  `json:"piece_type,omitempty" description:"Piece type"`
	Color         *string  `json:"color,omitempty" description:"Color"`
	Size          *string  `json:"size,omitempty" description:"Size"`
	Collection    *string  `json:"collection,omitempty" description:"Collection"`
	Brand         *string  `json:"brand,omitempty" description:"Brand"`
}

type searchProductsArgs struct {
	Name       string   `json:"name,omitempty" description:"Substring of the product name"`
	Category   string   `json:"category,omitempty" description:"Category"`
	PieceType  string   `json:"piece_type,omitempty" description:"Piece type"`
	Color      string   `json:"color,omitempty" description:"Color"`
	Size       string   `json:"size,omitempty" description:"Size"`
	Collection string   `json:"collection,omitempty" description:"Substring of the collection"`
	Brand      string   `json:"brand,omitempty" description:"Substring of the brand"`
	PriceMin   *float64 `json:"price_min,omitempty" description:"Minimum price, inclusive"`
	PriceMax   *float64 `json:"price_max,omitempty" description:"Maximum price, inclusive"`
	InStock    bool     `json:"in_stock,omitempty" description:"Only products with stock"`
	SortBy     string   `json:"sort_by,omitempty" description:"Field to sort by"`
	Order      string   `json:"order,omitempty" description:"asc or desc"`
	Limit      *int     `json:"limit,omitempty" description:"Maximum number of results"`
}

type countArgs struct {
	Count *int `json:"count,omitempty" description:"Number of products"`
}

type purchaseArgs struct {
	UserID    string `json:"user_id" description:"Buyer id" required:"true"`
	ProductID string `json:"product_id" description:"Product id" required:"true"`
	Quantity  *int   `json:"quantity,omitempty" description:"Units to buy, 1 when omitted"`
}

type batchPurchaseArgs struct {
	Purchases []purchaseArgs `json:"purchases" description:"Purchases to register in order" required:"true"`
}

type historyArgs struct {
	UserID string `json:"user_id,omitempty" description:"Only purchases of this user"`
	Limit  *int   `json:"limit,omitempty" description:"Page size"`
	Cursor string `json:"cursor,omitempty" description:"next_cursor of the previous page"`
}

type recommendArgs struct {
	UserID string `json:"user_id" description:"User id" required:"true"`
	Limit  *int   `json:"limit,omitempty" description:"Maximum number of products"`
}

type revenueArgs struct {
	StartDate string `json:"start_date,omitempty" description:"First day (YYYY-MM-DD), inclusive"`
	EndDate   string `json:"end_date,omitempty" description:"Last day (YYYY-MM-DD), inclusive"`
}

type topArgs struct {
	N *int `json:"n,omitempty" description:"Number of entries"`
}

type purchaseCountArgs struct {
	UserID string `json:"user_id,omitempty" description:"Only purchases of this user"`
}

type noArgs struct{}

type exportFilter struct {
	Name   string `json:"name,omitempty" description:"Substring of the name, ignoring case"`
	Email  string `json:"email,omitempty" description:"Substring of the email, ignoring case"`
	AgeMin *int   `json:"age_min,omitempty" description:"Minimum age"`
	AgeMax *int   `json:"age_max,omitempty" description:"Maximum age"`
}

type exportArgs struct {
	CollectionName string        `json:"collection_name" description:"users, products or purchases" required:"true"`
	Fields         []string      `json:"fields,omitempty" description:"Columns to include"`
	Filter         *exportFilter `json:"filter,omitempty" description:"Users only"`
}
