package menus

import "sort"

// BuildTree nests a flat item list by parent_id. Items whose parent is
// missing are promoted to the root. Siblings are ordered by sort_order, id.
func BuildTree(items []Item) []*Item {
	nodes := make(map[string]*Item, len(items))
	for i := range items {
		item := items[i]
		item.Children = nil
		nodes[item.ID] = &item
	}

	var roots []*Item
	for i := range items {
		node := nodes[items[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortItems(roots)
	if roots == nil {
		roots = []*Item{}
	}
	return roots
}

func sortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	for _, item := range items {
		sortItems(item.Children)
	}
}

// CheckPlacements validates a reorder request against the menu's current
// items: every id and parent must belong to the menu and the resulting
// parent links must be acyclic.
func CheckPlacements(items []Item, placements []Placement) error {
	parents := make(map[string]string, len(items))
	for _, item := range items {
		if item.ParentID != nil {
			parents[item.ID] = *item.ParentID
		} else {
			parents[item.ID] = ""
		}
	}

	for _, p := range placements {
		if _, ok := parents[p.ID]; !ok {
			return ErrUnknownItem
		}
		if p.ParentID != nil && *p.ParentID != "" {
			if _, ok := parents[*p.ParentID]; !ok {
				return ErrForeignParent
			}
		}
	}

	for _, p := range placements {
		if p.ParentID != nil {
			parents[p.ID] = *p.ParentID
		} else {
			parents[p.ID] = ""
		}
	}
	return checkAcyclic(parents)
}

// CheckParent validates moving item id under parentID.
func CheckParent(items []Item, id string, parentID *string) error {
	placements := []Placement{{ID: id, ParentID: parentID}}
	return CheckPlacements(items, placements)
}

func checkAcyclic(parents map[string]string) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(parents))
	for start := range parents {
		var path []string
		node := start
		for node != "" && state[node] == unvisited {
			state[node] = visiting
			path = append(path, node)
			node = parents[node]
		}
		if node != "" && state[node] == visiting {
			return ErrCycle
		}
		for _, n := range path {
			state[n] = done
		}
	}
	return nil
}
