package tools

import (
	"context"

	"github.com/safar/store-mcp/internal/catalog"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
)

func userFields(args Args) (models.CreateUserRequest, error) {
	var req models.CreateUserRequest
	var err error

	if req.Name, err = args.String("name"); err != nil {
		return req, err
	}
	if req.Email, err = args.String("email"); err != nil {
		return req, err
	}
	if req.Phone, err = args.String("phone"); err != nil {
		return req, err
	}
	if req.Age, err = args.Int("age"); err != nil {
		return req, err
	}
	return req, nil
}

func userUpdate(args Args) (models.UpdateUserRequest, error) {
	var req models.UpdateUserRequest
	var err error

	if req.Name, err = args.OptionalString("name"); err != nil {
		return req, err
	}
	if req.Email, err = args.OptionalString("email"); err != nil {
		return req, err
	}
	if req.Phone, err = args.OptionalString("phone"); err != nil {
		return req, err
	}
	if req.Age, err = args.Int("age"); err != nil {
		return req, err
	}
	return req, nil
}

// userOperation decodes one {action, data} entry of batch_user_operations.
// The target of update and delete is data.user_id. An unknown action is
// left to the service to reject.
func userOperation(args Args) (catalog.UserOperation, error) {
	var op catalog.UserOperation
	var err error

	if op.Action, err = args.RequiredString("action"); err != nil {
		return op, err
	}
	data, err := args.Object("data")
	if err != nil {
		return op, err
	}
	if data == nil {
		data = Args{}
	}

	switch op.Action {
	case catalog.ActionCreate:
		op.Create, err = userFields(data)
	case catalog.ActionUpdate:
		if op.UserID, err = data.RequiredString("user_id"); err == nil {
			op.Update, err = userUpdate(data)
		}
	case catalog.ActionDelete:
		op.UserID, err = data.RequiredString("user_id")
	}
	return op, err
}

func userTools(svc *catalog.Service) []Tool {
	return []Tool{
		{
			Name:        "create_user",
			Description: "Create a user. Email must be unique.",
			Params: []Param{
				str("name", "Full name", true),
				str("email", "Email address", true),
				str("phone", "Phone number", false),
				integer("age", "Age in years", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				req, err := userFields(args)
				if err != nil {
					return nil, err
				}
				return svc.CreateUser(ctx, req)
			},
		},
		{
			Name:        "list_users",
			Description: "List users, optionally filtered and sorted.",
			Params: append([]Param{
				str("id", "Substring of the user id", false),
				str("name", "Substring of the name", false),
				str("email", "Substring of the email", false),
				integer("age_min", "Minimum age", false),
				integer("age_max", "Maximum age", false),
			}, orderParams...),
			Handler: func(ctx context.Context, args Args) (any, error) {
				var q catalog.UserQuery
				var err error

				if q.Filter.IDContains, err = args.String("id"); err != nil {
					return nil, err
				}
				if q.Filter.NameContains, err = args.String("name"); err != nil {
					return nil, err
				}
				if q.Filter.EmailContains, err = args.String("email"); err != nil {
					return nil, err
				}
				if q.Filter.MinAge, err = args.Int("age_min"); err != nil {
					return nil, err
				}
				if q.Filter.MaxAge, err = args.Int("age_max"); err != nil {
					return nil, err
				}
				if q.SortBy, q.Desc, q.Limit, err = orderArgs(args); err != nil {
					return nil, err
				}

				users, err := svc.ListUsers(ctx, q)
				if err != nil {
					return nil, err
				}
				return map[string]any{"users": users, "count": len(users)}, nil
			},
		},
		{
			Name:        "get_user",
			Description: "Get a user by id.",
			Params:      []Param{str("user_id", "User id", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("user_id")
				if err != nil {
					return nil, err
				}
				return svc.GetUser(ctx, id)
			},
		},
		{
			Name:        "update_user",
			Description: "Update the given fields of a user.",
			Params: []Param{
				str("user_id", "User id", true),
				str("name", "Full name", false),
				str("email", "Email address", false),
				str("phone", "Phone number", false),
				integer("age", "Age in years", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("user_id")
				if err != nil {
					return nil, err
				}

				req, err := userUpdate(args)
				if err != nil {
					return nil, err
				}
				return svc.UpdateUser(ctx, id, req)
			},
		},
		{
			Name:        "delete_user",
			Description: "Delete a user. Their purchases are kept.",
			Params:      []Param{str("user_id", "User id", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("user_id")
				if err != nil {
					return nil, err
				}
				if err := svc.DeleteUser(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": true, "user_id": id}, nil
			},
		},
		{
			Name:        "batch_create_users",
			Description: "Create several users; each one succeeds or fails on its own.",
			Params:      []Param{array("users", "List of {name, email, phone, age} objects", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				entries, err := args.Entries("users")
				if err != nil {
					return nil, err
				}

				items := make([]catalog.UserItem, len(entries))
				for i, entry := range entries {
					if entry.Err != nil {
						items[i].Err = entry.Err
						continue
					}
					items[i].Request, items[i].Err = userFields(entry.Args)
				}

				results, err := svc.CreateUserItems(ctx, items)
				if err != nil {
					return nil, err
				}

				created := 0
				for _, r := range results {
					if r.Error == nil {
						created++
					}
				}
				return map[string]any{
					"results": results,
					"created": created,
					"failed":  len(results) - created,
				}, nil
			},
		},
		{
			Name:        "batch_user_operations",
			Description: "Apply create, update and delete operations on users in order; each one succeeds or fails on its own.",
			Params: []Param{array("operations",
				"List of {action, data} objects; action is create, update or delete, data holds the user fields and user_id", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				entries, err := args.Entries("operations")
				if err != nil {
					return nil, err
				}

				ops := make([]catalog.UserOperation, len(entries))
				for i, entry := range entries {
					if entry.Err != nil {
						ops[i].Err = entry.Err
						continue
					}
					op, err := userOperation(entry.Args)
					op.Err = err
					ops[i] = op
				}

				results, err := svc.BatchUserOperations(ctx, ops)
				if err != nil {
					return nil, err
				}

				succeeded := 0
				for _, r := range results {
					if r.Error == nil {
						succeeded++
					}
				}
				return map[string]any{
					"results":   results,
					"succeeded": succeeded,
					"failed":    len(results) - succeeded,
				}, nil
			},
		},
	}
}

func productFilter(args Args) (store.ProductFilter, error) {
	var f store.ProductFilter
	var err error

	for key, dst := range map[string]*string{
		"name":       &f.NameContains,
		"category":   &f.Category,
		"piece_type": &f.PieceType,
		"color":      &f.Color,
		"size":       &f.Size,
		"collection": &f.CollectionContains,
		"brand":      &f.BrandContains,
	} {
		if *dst, err = args.String(key); err != nil {
			return f, err
		}
	}
	if f.MinPrice, err = args.Decimal("price_min"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = args.Decimal("price_max"); err != nil {
		return f, err
	}
	if f.InStock, err = args.Bool("in_stock"); err != nil {
		return f, err
	}
	return f, nil
}

var productFilterParams = []Param{
	str("name", "Substring of the product name", false),
	str("category", "Category, e.g. Casual, Formal, Esportivo", false),
	str("piece_type", "Piece type, e.g. Camiseta, Calça", false),
	str("color", "Color", false),
	str("size", "Size, e.g. M or 40", false),
	str("collection", "Substring of the collection", false),
	str("brand", "Substring of the brand", false),
	number("price_min", "Minimum price, inclusive", false),
	number("price_max", "Maximum price, inclusive", false),
	boolean("in_stock", "Only products with stock"),
}

func productQuery(args Args) (catalog.ProductQuery, error) {
	var q catalog.ProductQuery
	var err error

	if q.Filter, err = productFilter(args); err != nil {
		return q, err
	}
	if q.SortBy, q.Desc, q.Limit, err = orderArgs(args); err != nil {
		return q, err
	}
	return q, nil
}

func productTools(svc *catalog.Service) []Tool {
	listing := func(list func(context.Context, catalog.ProductQuery) ([]models.Product, error)) Handler {
		return func(ctx context.Context, args Args) (any, error) {
			q, err := productQuery(args)
			if err != nil {
				return nil, err
			}
			products, err := list(ctx, q)
			if err != nil {
				return nil, err
			}
			return map[string]any{"products": products, "count": len(products)}, nil
		}
	}

	return []Tool{
		{
			Name:        "create_product",
			Description: "Create a product. Stock defaults to 0.",
			Params: []Param{
				str("name", "Product name", true),
				number("price", "Unit price, not negative", true),
				str("description", "Description", false),
				str("category", "Category", false),
				str("piece_type", "Piece type", false),
				str("color", "Color", false),
				str("size", "Size", false),
				str("collection", "Collection", false),
				str("brand", "Brand", false),
				integer("stock_quantity", "Units in stock", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				var req models.CreateProductRequest
				var err error

				for key, dst := range map[string]*string{
					"name":        &req.Name,
					"description": &req.Description,
					"category":    &req.Category,
					"piece_type":  &req.PieceType,
					"color":       &req.Color,
					"size":        &req.Size,
					"collection":  &req.Collection,
					"brand":       &req.Brand,
				} {
					if *dst, err = args.String(key); err != nil {
						return nil, err
					}
				}
				if req.Price, err = args.Decimal("price"); err != nil {
					return nil, err
				}
				if req.StockQuantity, err = args.Int("stock_quantity"); err != nil {
					return nil, err
				}
				return svc.CreateProduct(ctx, req)
			},
		},
		{
			Name:        "list_products",
			Description: "List products, optionally filtered and sorted.",
			Params:      append(append([]Param{}, productFilterParams...), orderParams...),
			Handler:     listing(svc.ListProducts),
		},
		{
			Name:        "search_products",
			Description: "Search products by attributes, price range and availability.",
			Params:      append(append([]Param{}, productFilterParams...), orderParams...),
			Handler:     listing(svc.SearchProducts),
		},
		{
			Name:        "get_product",
			Description: "Get a product by id.",
			Params:      []Param{str("product_id", "Product id", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("product_id")
				if err != nil {
					return nil, err
				}
				return svc.GetProduct(ctx, id)
			},
		},
		{
			Name:        "update_product",
			Description: "Update the given fields of a product.",
			Params: []Param{
				str("product_id", "Product id", true),
				str("name", "Product name", false),
				number("price", "Unit price, not negative", false),
				str("description", "Description", false),
				str("category", "Category", false),
				str("piece_type", "Piece type", false),
				str("color", "Color", false),
				str("size", "Size", false),
				str("collection", "Collection", false),
				str("brand", "Brand", false),
				integer("stock_quantity", "Units in stock, not negative", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("product_id")
				if err != nil {
					return nil, err
				}

				var req models.UpdateProductRequest
				for key, dst := range map[string]**string{
					"name":        &req.Name,
					"description": &req.Description,
					"category":    &req.Category,
					"piece_type":  &req.PieceType,
					"color":       &req.Color,
					"size":        &req.Size,
					"collection":  &req.Collection,
					"brand":       &req.Brand,
				} {
					if *dst, err = args.OptionalString(key); err != nil {
						return nil, err
					}
				}
				if req.Price, err = args.Decimal("price"); err != nil {
					return nil, err
				}
				if req.StockQuantity, err = args.Int("stock_quantity"); err != nil {
					return nil, err
				}
				return svc.UpdateProduct(ctx, id, req)
			},
		},
		{
			Name:        "delete_product",
			Description: "Delete a product. Purchases of it are kept.",
			Params:      []Param{str("product_id", "Product id", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("product_id")
				if err != nil {
					return nil, err
				}
				if err := svc.DeleteProduct(ctx, id); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": true, "product_id": id}, nil
			},
		},
		{
			Name:        "generate_sample_products",
			Description: "Add a deterministic set of sample clothing products.",
			Params:      []Param{integer("count", "Number of products, 10 when omitted", false)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				count, err := args.IntOr("count", 0)
				if err != nil {
					return nil, err
				}
				products, err := svc.GenerateSampleProducts(ctx, count)
				if err != nil {
					return nil, err
				}
				return map[string]any{"products": products, "count": len(products)}, nil
			},
		},
	}
}
