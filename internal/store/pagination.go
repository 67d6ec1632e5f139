package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safar/store-mcp/internal/models"
)

type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// PurchaseCursor marks the last purchase of a newest-first page.
type PurchaseCursor struct {
	CreatedAt time.Time `json:"created_at"`
	Seq       int64     `json:"seq"`
}

// Precedes reports whether p sorts after the cursor in newest-first order.
func (c PurchaseCursor) Precedes(p *models.Purchase) bool {
	if p.CreatedAt.Equal(c.CreatedAt) {
		return p.Seq < c.Seq
	}
	return p.CreatedAt.Before(c.CreatedAt)
}

func EncodeCursor(cursor PurchaseCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor returns nil for an empty cursor, meaning the first page.
func DecodeCursor(encoded string) (*PurchaseCursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	var cursor PurchaseCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	return &cursor, nil
}

// PurchasePage trims a result fetched with limit+1 rows into a page.
func PurchasePage(purchases []models.Purchase, limit int) *CursorPage {
	hasMore := len(purchases) > limit
	if hasMore {
		purchases = purchases[:limit]
	}

	var nextCursor string
	if hasMore && len(purchases) > 0 {
		last := purchases[len(purchases)-1]
		nextCursor = EncodeCursor(PurchaseCursor{
			CreatedAt: last.CreatedAt,
			Seq:       last.Seq,
		})
	}

	if purchases == nil {
		purchases = []models.Purchase{}
	}

	return &CursorPage{
		Items:      purchases,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}
}
