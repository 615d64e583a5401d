package menu

import (
	"strings"
	"testing"

	"github.com/spec-kit/isp-routing-engine/internal/domain"
)

func sampleOptions() []domain.MenuNode {
	return []domain.MenuNode{
		{ID: "soporte", SortOrder: 1, Title: "Soporte técnico", Action: domain.MenuActionSubmenu},
		{ID: "facturacion", SortOrder: 2, Title: "Facturación", Action: domain.MenuActionSubmenu},
		{ID: "agente", SortOrder: 5, Title: "Hablar con un agente", Action: domain.MenuActionTicket},
	}
}

func TestRenderRoot(t *testing.T) {
	out := Render("¡Hola! ¿En qué te ayudo?", sampleOptions(), true)

	for _, line := range []string{
		"¡Hola! ¿En qué te ayudo?",
		"1. Soporte técnico",
		"2. Facturación",
		"5. Hablar con un agente",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("rendered menu missing %q:\n%s", line, out)
		}
	}
	if strings.Contains(out, "Volver al inicio") {
		t.Fatalf("root menu shows back option:\n%s", out)
	}
}

func TestRenderSubmenuHasBackOption(t *testing.T) {
	out := Render("Soporte técnico 👇", sampleOptions(), false)
	if !strings.Contains(out, "0. Volver al inicio") {
		t.Fatalf("submenu missing back option:\n%s", out)
	}
}

func TestSelectByOrder(t *testing.T) {
	options := sampleOptions()

	node, ok := SelectByOrder(options, 5)
	if !ok || node.ID != "agente" {
		t.Fatalf("SelectByOrder(5) = %v, %v", node, ok)
	}

	// selection matches the declared order, not the slice position
	if _, ok := SelectByOrder(options, 3); ok {
		t.Fatal("SelectByOrder(3) matched a gap in the numbering")
	}
	if _, ok := SelectByOrder(options, 0); ok {
		t.Fatal("SelectByOrder(0) matched")
	}
	if _, ok := SelectByOrder(nil, 1); ok {
		t.Fatal("SelectByOrder on empty options matched")
	}
}
