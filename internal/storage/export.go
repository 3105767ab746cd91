package storage

// Export materializes the subtree rooted at n as plain maps and
// scalar values, detached from the backend. Consumers use it for
// display, JSON dumps and path queries; mutating the result never
// touches stored state.
func Export(n *Node) (map[string]any, error) {
	keys, err := n.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := n.Get(k)
		if err != nil {
			return nil, err
		}
		if child, ok := v.(*Node); ok {
			sub, err := Export(child)
			if err != nil {
				return nil, err
			}
			out[k] = sub
			continue
		}
		out[k] = v
	}
	return out, nil
}
