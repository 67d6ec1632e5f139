package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/localrivet/gomcp/protocol"
	"github.com/localrivet/gomcp/server"
	"github.com/safar/store-mcp/internal/app"
	"github.com/safar/store-mcp/internal/config"
	"github.com/safar/store-mcp/internal/logger"
	"github.com/safar/store-mcp/internal/tools"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer zl.Sync()

	a, err := app.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("initialize application", zap.Error(err))
	}
	defer a.Close()

	d := a.Dispatcher
	descriptions := make(map[string]string)
	for _, def := range d.Definitions() {
		descriptions[def.Name] = def.Description
	}

	srv := server.NewServer("store-mcp")

	err = errors.Join(
		server.AddTool(srv, "create_user", descriptions["create_user"], handle[createUserArgs](d, "create_user")),
		server.AddTool(srv, "list_users", descriptions["list_users"], handle[listUsersArgs](d, "list_users")),
		server.AddTool(srv, "get_user", descriptions["get_user"], handle[userIDArgs](d, "get_user")),
		server.AddTool(srv, "update_user", descriptions["update_user"], handle[updateUserArgs](d, "update_user")),
		server.AddTool(srv, "delete_user", descriptions["delete_user"], handle[userIDArgs](d, "delete_user")),
		server.AddTool(srv, "batch_create_users", descriptions["batch_create_users"], handle[batchCreateUsersArgs](d, "batch_create_users")),
		server.AddTool(srv, "batch_user_operations", descriptions["batch_user_operations"], handle[batchUserOperationsArgs](d, "batch_user_operations")),

		server.AddTool(srv, "create_product", descriptions["create_product"], handle[createProductArgs](d, "create_product")),
		server.AddTool(srv, "list_products", descriptions["list_products"], handle[searchProductsArgs](d, "list_products")),
		server.AddTool(srv, "search_products", descriptions["search_products"], handle[searchProductsArgs](d, "search_products")),
		server.AddTool(srv, "get_product", descriptions["get_product"], handle[productIDArgs](d, "get_product")),
		server.AddTool(srv, "update_product", descriptions["update_product"], handle[updateProductArgs](d, "update_product")),
		server.AddTool(srv, "delete_product", descriptions["delete_product"], handle[productIDArgs](d, "delete_product")),
		server.AddTool(srv, "generate_sample_products", descriptions["generate_sample_products"], handle[countArgs](d, "generate_sample_products")),

		server.AddTool(srv, "register_purchase", descriptions["register_purchase"], handle[purchaseArgs](d, "register_purchase")),
		server.AddTool(srv, "register_purchases_batch", descriptions["register_purchases_batch"], handle[batchPurchaseArgs](d, "register_purchases_batch")),
		server.AddTool(srv, "purchase_history", descriptions["purchase_history"], handle[historyArgs](d, "purchase_history")),

		server.AddTool(srv, "recommend", descriptions["recommend"], handle[recommendArgs](d, "recommend")),
		server.AddTool(srv, "total_revenue", descriptions["total_revenue"], handle[revenueArgs](d, "total_revenue")),
		server.AddTool(srv, "top_products", descriptions["top_products"], handle[topArgs](d, "top_products")),
		server.AddTool(srv, "purchase_count", descriptions["purchase_count"], handle[purchaseCountArgs](d, "purchase_count")),
		server.AddTool(srv, "recent_purchases", descriptions["recent_purchases"], handle[topArgs](d, "recent_purchases")),
		server.AddTool(srv, "dashboard_summary", descriptions["dashboard_summary"], handle[noArgs](d, "dashboard_summary")),
		server.AddTool(srv, "export_csv", descriptions["export_csv"], handle[exportArgs](d, "export_csv")),
	)
	if err != nil {
		zl.Fatal("register tools", zap.Error(err))
	}

	zl.Info("store-mcp ready (stdio mode)", zap.String("store", cfg.Store.Driver))
	if err := server.ServeStdio(srv); err != nil {
		zl.Fatal("serve", zap.Error(err))
	}
}

// handle adapts a dispatcher tool to a typed MCP handler. The call result,
// success or failure, is returned as JSON text.
func handle[T any](d *tools.Dispatcher, name string) func(T) (protocol.Content, error) {
	return func(args T) (protocol.Content, error) {
		m, err := toArgs(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		out, err := json.Marshal(d.Call(context.Background(), name, m))
		if err != nil {
			return nil, fmt.Errorf("%s: encode result: %w", name, err)
		}
		return server.Text(string(out)), nil
	}
}

func toArgs(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
