// Package inspect renders component trees and handler tables as text.
package inspect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/manager"
)

// Tree renders the component tree rooted at m, one component per line:
//
//	app<*> [2]
//	├── timer:tick<*> [0]
//	└── worker<jobs> [1]
//	    └── cache<jobs> [1]
//
// The bracketed number is the count of handlers the component declared.
// Hidden components that are no longer reachable through the tree are
// listed after it, prefixed with "*".
func Tree(m *manager.Manager) string {
	var b strings.Builder
	seen := make(map[*manager.Manager]bool)
	writeNode(&b, m, "", "", seen)

	var orphans []*manager.Manager
	for n := range seen {
		for _, h := range n.Hidden() {
			if !seen[h] && !slices.Contains(orphans, h) {
				orphans = append(orphans, h)
			}
		}
	}
	slices.SortFunc(orphans, func(a, b *manager.Manager) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, o := range orphans {
		fmt.Fprintf(&b, "* %s\n", label(o))
	}
	return b.String()
}

func writeNode(b *strings.Builder, m *manager.Manager, prefix, branch string, seen map[*manager.Manager]bool) {
	seen[m] = true
	b.WriteString(prefix + branch + label(m) + "\n")

	switch branch {
	case "├── ":
		prefix += "│   "
	case "└── ":
		prefix += "    "
	}
	children := m.Components()
	for i, c := range children {
		if seen[c] {
			continue
		}
		next := "├── "
		if i == len(children)-1 {
			next = "└── "
		}
		writeNode(b, c, prefix, next, seen)
	}
}

func label(m *manager.Manager) string {
	return fmt.Sprintf("%s [%d]", m.String(), len(m.Handlers()))
}

// Handlers lists the handlers registered in the registry of m's root.
// Global handlers come first, then one section per routing key.
func Handlers(m *manager.Manager) string {
	var b strings.Builder
	for _, bucket := range m.Registry().Buckets() {
		title := bucket.Key.String()
		if bucket.Global {
			title = "<global>"
		}
		b.WriteString(title + "\n")
		for _, h := range bucket.Handlers {
			b.WriteString("  " + handlerLabel(h) + "\n")
		}
	}
	return b.String()
}

func handlerLabel(h *event.Handler) string {
	if owner, ok := h.Owner.(fmt.Stringer); ok {
		return h.String() + " (" + owner.String() + ")"
	}
	return h.String()
}
