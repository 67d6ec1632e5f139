package catalog

import (
	"context"
	"fmt"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultSampleCount = 10
	MaxSampleCount     = 100
)

var (
	Categories = []string{"Casual", "Formal", "Esportivo", "Praia", "Inverno", "Festa"}
	PieceTypes = []string{"Camiseta", "Calça", "Vestido", "Saia", "Blusa", "Jaqueta", "Shorts", "Casaco", "Sapato", "Acessório"}
	Colors     = []string{"Preto", "Branco", "Azul", "Vermelho", "Verde", "Amarelo", "Rosa", "Roxo", "Marrom", "Cinza", "Bege", "Laranja"}
	Sizes      = []string{"PP", "P", "M", "G", "GG", "XGG", "34", "36", "38", "40", "42", "44", "46", "48"}
	Brands     = []string{"Aurora", "Maré", "Urbano", "Lume"}

	basePrices = map[string]string{
		"Camiseta":  "49.90",
		"Calça":     "129.90",
		"Vestido":   "159.90",
		"Saia":      "89.90",
		"Blusa":     "69.90",
		"Jaqueta":   "249.90",
		"Shorts":    "59.90",
		"Casaco":    "299.90",
		"Sapato":    "199.90",
		"Acessório": "39.90",
	}
)

// SampleProducts builds count deterministic clothing products spread over
// the category, piece type, color and size lists.
func SampleProducts(count int) []models.CreateProductRequest {
	reqs := make([]models.CreateProductRequest, 0, count)
	for i := 0; i < count; i++ {
		category := Categories[i%len(Categories)]
		piece := PieceTypes[i%len(PieceTypes)]
		color := Colors[(i*5)%len(Colors)]
		size := Sizes[(i*3)%len(Sizes)]

		// each pass over the piece types raises the price by 10.00
		price := decimal.RequireFromString(basePrices[piece]).
			Add(decimal.NewFromInt(int64(10 * (i / len(PieceTypes)))))
		stock := (i*7)%50 + 5

		reqs = append(reqs, models.CreateProductRequest{
			Name:          fmt.Sprintf("%s %s %s", piece, color, category),
			Description:   fmt.Sprintf("%s %s da coleção %s", piece, color, category),
			Price:         &price,
			Category:      category,
			PieceType:     piece,
			Color:         color,
			Size:          size,
			Collection:    fmt.Sprintf("Coleção %s %d", category, 2024+i%2),
			Brand:         Brands[i%len(Brands)],
			StockQuantity: &stock,
		})
	}
	return reqs
}

// GenerateSampleProducts seeds the catalog with SampleProducts(count).
func (s *Service) GenerateSampleProducts(ctx context.Context, count int) ([]models.Product, error) {
	if count == 0 {
		count = DefaultSampleCount
	}
	if count < 0 || count > MaxSampleCount {
		return nil, appErrors.AddValidationError("count", fmt.Sprintf("must be between 1 and %d", MaxSampleCount))
	}

	products := make([]models.Product, 0, count)
	for _, req := range SampleProducts(count) {
		product, err := s.CreateProduct(ctx, req)
		if err != nil {
			return products, err
		}
		products = append(products, *product)
	}

	s.logger.Info("sample products generated", zap.Int("count", len(products)))

	return products, nil
}
