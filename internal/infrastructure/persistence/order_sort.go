package persistence

import (
	"strings"

	"github.com/opsdash/purchasing/internal/domain/shared"
)

const defaultOrderSortColumn = "created_at"

// orderSortColumns whitelists the order_by values accepted for purchase order
// listings. Keys double as column names of purchase_orders.
var orderSortColumns = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"expected_date": true,
	"order_number":  true,
	"status":        true,
}

// orderSort is a validated ORDER BY for purchase order listings
type orderSort struct {
	Column string
	Asc    bool
}

// resolveOrderSort never returns a column outside orderSortColumns, so the
// result is safe to interpolate into SQL. Anything but "asc" sorts newest first.
func resolveOrderSort(f shared.Filter) orderSort {
	s := orderSort{Column: defaultOrderSortColumn}
	if col := strings.TrimSpace(f.OrderBy); orderSortColumns[col] {
		s.Column = col
	}
	s.Asc = strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc")
	return s
}

func (s orderSort) direction() string {
	if s.Asc {
		return "ASC"
	}
	return "DESC"
}

// clause orders by the chosen column and breaks ties on id for stable pages
func (s orderSort) clause() string {
	dir := s.direction()
	return s.Column + " " + dir + ", id " + dir
}
