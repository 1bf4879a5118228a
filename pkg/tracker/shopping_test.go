package tracker

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestShoppingListAddMerges(t *testing.T) {
	l := NewShoppingList()
	if err := l.AddItem("bananas", 2); err != nil {
		t.Fatal(err)
	}
	if err := l.AddItem("bananas", 4); err != nil {
		t.Fatal(err)
	}
	if got := l.Items()["bananas"]; got != 6 {
		t.Fatalf("quantity=%d want 6", got)
	}
}

func TestShoppingListRejectsInvalidInput(t *testing.T) {
	l := NewShoppingList()
	for _, qty := range []int{0, -1} {
		if err := l.AddItem("milk", qty); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected invalid quantity, got %v", qty, err)
		}
	}
	if err := l.AddItem("  ", 1); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected invalid item, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatal("invalid input changed state")
	}
}

func TestShoppingListRemove(t *testing.T) {
	l := NewShoppingList()
	_ = l.AddItem("milk", 1)
	if err := l.RemoveItem("milk"); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Items()["milk"]; ok {
		t.Fatal("milk still present")
	}
	if err := l.RemoveItem("bread"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestShoppingListUpdateReplaces(t *testing.T) {
	l := NewShoppingList()
	_ = l.AddItem("eggs", 5)
	if err := l.UpdateQuantity("eggs", 10); err != nil {
		t.Fatal(err)
	}
	if got := l.Items()["eggs"]; got != 10 {
		t.Fatalf("quantity=%d want 10", got)
	}
	if err := l.UpdateQuantity("cheese", 2); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := l.UpdateQuantity("eggs", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
}

func TestShoppingListItemsIsACopy(t *testing.T) {
	l := NewShoppingList()
	_ = l.AddItem("rice", 1)
	_ = l.AddItem("beans", 2)
	items := l.Items()
	if diff := cmp.Diff(map[string]int{"rice": 1, "beans": 2}, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	items["rice"] = 99
	if l.Items()["rice"] != 1 {
		t.Fatal("mutating the snapshot changed the list")
	}
	l.Clear()
	if l.Len() != 0 {
		t.Fatal("clear left items behind")
	}
}

func TestParseItem(t *testing.T) {
	cases := []struct {
		line string
		name string
		qty  int
	}{
		{"Milk", "Milk", 1},
		{"2x Milk", "Milk", 2},
		{"2 x Milk", "Milk", 2},
		{"3 eggs", "eggs", 3},
		{"Butter x2", "Butter", 2},
		{"- Bread", "Bread", 1},
		{"100g flour", "100g flour", 1},
		{"3 xylophones", "xylophones", 3},
	}
	for _, tc := range cases {
		name, qty, err := ParseItem(tc.line)
		if err != nil {
			t.Fatalf("ParseItem(%q): %v", tc.line, err)
		}
		if name != tc.name || qty != tc.qty {
			t.Fatalf("ParseItem(%q) = %q, %d want %q, %d", tc.line, name, qty, tc.name, tc.qty)
		}
	}
	if _, _, err := ParseItem(" - "); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("expected invalid item, got %v", err)
	}
}
