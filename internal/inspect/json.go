package inspect

import (
	"slices"

	"github.com/tidwall/sjson"

	"github.com/dshills/switchyard/internal/manager"
)

// JSON renders the component tree and handler table of m as one JSON
// document:
//
//	{"tree": {...}, "hidden": [...], "handlers": [...]}
//
// Tree nodes carry id, name, channel, handler count and components.
func JSON(m *manager.Manager) (string, error) {
	seen := make(map[*manager.Manager]bool)
	tree, err := nodeJSON(m, seen)
	if err != nil {
		return "", err
	}
	doc, err := sjson.SetRaw(`{}`, "tree", tree)
	if err != nil {
		return "", err
	}

	hidden := make([]string, 0)
	for n := range seen {
		for _, h := range n.Hidden() {
			if !seen[h] && !slices.Contains(hidden, h.String()) {
				hidden = append(hidden, h.String())
			}
		}
	}
	slices.Sort(hidden)
	if doc, err = sjson.Set(doc, "hidden", hidden); err != nil {
		return "", err
	}

	if doc, err = sjson.SetRaw(doc, "handlers", `[]`); err != nil {
		return "", err
	}
	for _, bucket := range m.Registry().Buckets() {
		entry := `{}`
		if bucket.Global {
			entry, err = sjson.Set(entry, "global", true)
		} else {
			entry, err = sjson.Set(entry, "key", bucket.Key.String())
		}
		if err != nil {
			return "", err
		}
		labels := make([]string, 0, len(bucket.Handlers))
		for _, h := range bucket.Handlers {
			labels = append(labels, h.String())
		}
		if entry, err = sjson.Set(entry, "handlers", labels); err != nil {
			return "", err
		}
		if doc, err = sjson.SetRaw(doc, "handlers.-1", entry); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func nodeJSON(m *manager.Manager, seen map[*manager.Manager]bool) (string, error) {
	seen[m] = true

	node := `{}`
	var err error
	set := func(path string, value any) {
		if err == nil {
			node, err = sjson.Set(node, path, value)
		}
	}
	set("id", m.ID().String())
	set("name", m.Name())
	set("channel", m.Channel())
	set("handlers", len(m.Handlers()))
	if err != nil {
		return "", err
	}
	if node, err = sjson.SetRaw(node, "components", `[]`); err != nil {
		return "", err
	}

	for _, c := range m.Components() {
		if seen[c] {
			continue
		}
		child, err := nodeJSON(c, seen)
		if err != nil {
			return "", err
		}
		if node, err = sjson.SetRaw(node, "components.-1", child); err != nil {
			return "", err
		}
	}
	return node, nil
}
