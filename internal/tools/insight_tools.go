package tools

import (
	"context"

	"github.com/safar/store-mcp/internal/analytics"
	"github.com/safar/store-mcp/internal/export"
	"github.com/safar/store-mcp/internal/store"
)

// exportUserFilter reads the optional filter object of export_csv.
func exportUserFilter(args Args) (*store.UserFilter, error) {
	filter, err := args.Object("filter")
	if err != nil || filter == nil {
		return nil, err
	}

	var f store.UserFilter
	if f.NameContains, err = filter.String("name"); err != nil {
		return nil, err
	}
	if f.EmailContains, err = filter.String("email"); err != nil {
		return nil, err
	}
	if f.MinAge, err = filter.Int("age_min"); err != nil {
		return nil, err
	}
	if f.MaxAge, err = filter.Int("age_max"); err != nil {
		return nil, err
	}
	return &f, nil
}

func insightTools(s Services) []Tool {
	return []Tool{
		{
			Name:        "recommend",
			Description: "Recommend in-stock products for a user from their purchase history.",
			Params: []Param{
				str("user_id", "User id", true),
				integer("limit", "Maximum number of products, 10 when omitted", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.RequiredString("user_id")
				if err != nil {
					return nil, err
				}
				limit, err := args.IntOr("limit", s.Recommender.DefaultLimit())
				if err != nil {
					return nil, err
				}
				return s.Recommender.Recommend(ctx, id, limit)
			},
		},
		{
			Name:        "total_revenue",
			Description: "Sum of purchase totals, optionally within a date range.",
			Params: []Param{
				str("start_date", "First day (YYYY-MM-DD) or RFC 3339 time, inclusive", false),
				str("end_date", "Last day (YYYY-MM-DD) or RFC 3339 time, inclusive", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				from, err := args.Time("start_date", false)
				if err != nil {
					return nil, err
				}
				to, err := args.Time("end_date", true)
				if err != nil {
					return nil, err
				}

				var r *analytics.DateRange
				if from != nil || to != nil {
					r = &analytics.DateRange{From: from, To: to}
				}
				return s.Analytics.TotalRevenue(ctx, r)
			},
		},
		{
			Name:        "top_products",
			Description: "Products ranked by units sold.",
			Params:      []Param{integer("n", "Number of products, 10 when omitted", false)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				n, err := args.IntOr("n", 0)
				if err != nil {
					return nil, err
				}
				top, err := s.Analytics.TopProducts(ctx, n)
				if err != nil {
					return nil, err
				}
				return map[string]any{"products": top}, nil
			},
		},
		{
			Name:        "purchase_count",
			Description: "Number of purchases, optionally for one user.",
			Params:      []Param{str("user_id", "Only purchases of this user", false)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				id, err := args.String("user_id")
				if err != nil {
					return nil, err
				}
				count, err := s.Analytics.PurchaseCount(ctx, id)
				if err != nil {
					return nil, err
				}
				result := map[string]any{"count": count}
				if id != "" {
					result["user_id"] = id
				}
				return result, nil
			},
		},
		{
			Name:        "recent_purchases",
			Description: "The latest purchases, newest first.",
			Params:      []Param{integer("n", "Number of purchases, 10 when omitted", false)},
			Handler: func(ctx context.Context, args Args) (any, error) {
				n, err := args.IntOr("n", 0)
				if err != nil {
					return nil, err
				}
				purchases, err := s.Analytics.RecentPurchases(ctx, n)
				if err != nil {
					return nil, err
				}
				return map[string]any{"purchases": purchases}, nil
			},
		},
		{
			Name:        "dashboard_summary",
			Description: "Business overview: users, products, sales and recommendation metrics.",
			Handler: func(ctx context.Context, _ Args) (any, error) {
				return s.Analytics.Dashboard(ctx)
			},
		},
		{
			Name:        "export_csv",
			Description: "Export users, products or purchases as ';'-separated CSV.",
			Params: []Param{
				str("collection_name", "users, products or purchases", true),
				array("fields", "Columns to include, all when omitted", false),
				object("filter", "Users only: {name, email, age_min, age_max}; name and email match substrings ignoring case", false),
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				var q export.Query
				var err error

				if q.Collection, err = args.RequiredString("collection_name"); err != nil {
					return nil, err
				}
				if q.Fields, err = args.Strings("fields"); err != nil {
					return nil, err
				}
				if q.Users, err = exportUserFilter(args); err != nil {
					return nil, err
				}
				return s.Exporter.Export(ctx, q, s.Now())
			},
		},
	}
}
