package tracker

import (
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// ShoppingList maps item names to positive quantities. Adding an existing
// item adds to its quantity.
type ShoppingList struct {
	items map[string]int
}

// NewShoppingList returns an empty list.
func NewShoppingList() *ShoppingList {
	return &ShoppingList{items: make(map[string]int)}
}

// AddItem merges qty into name.
func (l *ShoppingList) AddItem(name string, qty int) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidItem
	}
	if qty <= 0 {
		return errmodel.Validation(ErrInvalidQuantity.Code, "quantity must be a positive integer", map[string]any{"item": name, "quantity": qty})
	}
	if l.items == nil {
		l.items = make(map[string]int)
	}
	l.items[name] += qty
	return nil
}

// RemoveItem deletes name or fails with ErrItemNotFound.
func (l *ShoppingList) RemoveItem(name string) error {
	if _, ok := l.items[name]; !ok {
		return itemNotFound(name)
	}
	delete(l.items, name)
	return nil
}

// UpdateQuantity replaces the quantity of an existing item.
func (l *ShoppingList) UpdateQuantity(name string, qty int) error {
	if _, ok := l.items[name]; !ok {
		return itemNotFound(name)
	}
	if qty <= 0 {
		return errmodel.Validation(ErrInvalidQuantity.Code, "quantity must be a positive integer", map[string]any{"item": name, "quantity": qty})
	}
	l.items[name] = qty
	return nil
}

// Items returns a copy of the list.
func (l *ShoppingList) Items() map[string]int {
	out := make(map[string]int, len(l.items))
	maps.Copy(out, l.items)
	return out
}

// Len reports the number of distinct items.
func (l *ShoppingList) Len() int { return len(l.items) }

// Clear empties the list.
func (l *ShoppingList) Clear() { clear(l.items) }

func itemNotFound(name string) error {
	return errmodel.NotFound(ErrItemNotFound.Code, "item is not on the list", map[string]any{"item": name})
}

var (
	multiplied  = regexp.MustCompile(`^(\d+)\s*[xX×]\s+(\S.*)$`)
	counted     = regexp.MustCompile(`^(\d+)\s+(\S.*)$`)
	trailingQty = regexp.MustCompile(`^(.*\S)\s+[xX×]\s*(\d+)$`)
)

// ParseItem splits a recognized list line such as "2x Milk", "3 eggs",
// "Butter x2" or "- Bread" into a name and a quantity (default 1).
func ParseItem(line string) (name string, qty int, err error) {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*•·")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, errmodel.Validation(ErrInvalidItem.Code, "item name must not be blank", map[string]any{"line": line})
	}
	for _, re := range []*regexp.Regexp{multiplied, counted} {
		if m := re.FindStringSubmatch(s); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil && n > 0 {
				return strings.TrimSpace(m[2]), n, nil
			}
		}
	}
	if m := trailingQty.FindStringSubmatch(s); m != nil {
		if n, convErr := strconv.Atoi(m[2]); convErr == nil && n > 0 {
			return strings.TrimSpace(m[1]), n, nil
		}
	}
	return s, 1, nil
}
