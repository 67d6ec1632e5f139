package tools

import (
	"context"

	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/purchase"
)

// purchaseRequest reads one purchase. Quantity defaults to 1 when omitted.
func purchaseRequest(args Args) (models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	var err error

	if req.UserID, err = args.String("user_id"); err != nil {
		return req, err
	}
	if req.ProductID, err = args.String("product_id"); err != nil {
		return req, err
	}
	if req.Quantity, err = args.IntOr("quantity", 1); err != nil {
		return req, err
	}
	return req, nil
}

func purchaseTools(svc *purchase.Service) []Tool {
	return []Tool{
		{
			Name:        "register_purchase",
			Description: "Buy a quantity of a product for a user, decrementing stock atomically.",
			Params: []Param{
				str("user_id", "Buyer id", true),
				str("product_id", "Product id", true),
				integer("quantity", "Units to buy, 1 when omitted", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				req, err := purchaseRequest(args)
				if err != nil {
					return nil, err
				}
				return svc.Register(ctx, req)
			},
		},
		{
			Name:        "register_purchases_batch",
			Description: "Register several purchases in order; a failed item does not undo the others.",
			Params:      []Param{array("purchases", "List of {user_id, product_id, quantity} objects", true)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				entries, err := args.Entries("purchases")
				if err != nil {
					return nil, err
				}

				items := make([]purchase.BatchItem, len(entries))
				for i, entry := range entries {
					if entry.Err != nil {
						items[i].Err = entry.Err
						continue
					}
					items[i].Request, items[i].Err = purchaseRequest(entry.Args)
				}

				results, err := svc.RegisterItems(ctx, items)
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
		{
			Name:        "purchase_history",
			Description: "List purchases newest first, optionally for one user.",
			Params: []Param{
				str("user_id", "Only purchases of this user", false),
				integer("limit", "Page size, 100 when omitted, at most 500", false),
				str("cursor", "next_cursor of the previous page", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				var q purchase.HistoryQuery
				var err error

				if q.UserID, err = args.String("user_id"); err != nil {
					return nil, err
				}
				if q.Limit, err = args.IntOr("limit", 0); err != nil {
					return nil, err
				}
				if q.Cursor, err = args.String("cursor"); err != nil {
					return nil, err
				}
				return svc.History(ctx, q)
			},
		},
	}
}
