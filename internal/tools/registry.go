package tools

import (
	"time"

	"github.com/safar/store-mcp/internal/analytics"
	"github.com/safar/store-mcp/internal/catalog"
	"github.com/safar/store-mcp/internal/export"
	"github.com/safar/store-mcp/internal/purchase"
	"github.com/safar/store-mcp/internal/recommend"
)

// Services are the components the tools call into.
type Services struct {
	Catalog     *catalog.Service
	Purchases   *purchase.Service
	Recommender *recommend.Engine
	Analytics   *analytics.Service
	Exporter    *export.Exporter
	Now         func() time.Time
}

// RegisterAll registers every store tool on d.
func RegisterAll(d *Dispatcher, s Services) error {
	if s.Now == nil {
		s.Now = time.Now
	}

	groups := [][]Tool{
		userTools(s.Catalog),
		productTools(s.Catalog),
		purchaseTools(s.Purchases),
		insightTools(s),
	}
	for _, group := range groups {
		for _, tool := range group {
			if err := d.Register(tool); err != nil {
				return err
			}
		}
	}
	return nil
}

func str(name, description string, required bool) Param {
	return Param{Name: name, Type: "string", Description: description, Required: required}
}

func integer(name, description string, required bool) Param {
	return Param{Name: name, Type: "integer", Description: description, Required: required}
}

func number(name, description string, required bool) Param {
	return Param{Name: name, Type: "number", Description: description, Required: required}
}

func boolean(name, description string) Param {
	return Param{Name: name, Type: "boolean", Description: description}
}

func array(name, description string, required bool) Param {
	return Param{Name: name, Type: "array", Description: description, Required: required}
}

func object(name, description string, required bool) Param {
	return Param{Name: name, Type: "object", Description: description, Required: required}
}

// orderArgs reads the shared sort_by/order/limit arguments.
func orderArgs(args Args) (sortBy string, desc bool, limit int, err error) {
	if sortBy, err = args.String("sort_by"); err != nil {
		return
	}
	var order string
	if order, err = args.String("order"); err != nil {
		return
	}
	switch order {
	case "", "asc":
	case "desc":
		desc = true
	default:
		err = typeError("order", "one of: asc, desc")
		return
	}
	if limit, err = args.IntOr("limit", 0); err != nil {
		return
	}
	if limit < 0 {
		err = typeError("limit", "a positive integer")
	}
	return
}

var orderParams = []Param{
	str("sort_by", "Field to sort by; insertion order when omitted", false),
	str("order", "asc or desc", false),
	integer("limit", "Maximum number of results", false),
}
