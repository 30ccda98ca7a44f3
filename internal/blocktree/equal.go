package blocktree

// Equal reports whether an existing node already matches a desired payload.
// Two blocks are equal when their texts are identical and their children are
// pairwise equal by the same rule, at any depth. A missing or extra child at
// any level makes them unequal.
func Equal(node Node, payload Payload) bool {
	if node.Text != payload.Text {
		return false
	}
	return ChildrenEqual(node.Children, payload.Children)
}

// ChildrenEqual compares two child sequences position by position.
func ChildrenEqual(nodes []Node, payloads []Payload) bool {
	if len(nodes) != len(payloads) {
		return false
	}
	for i := range nodes {
		if !Equal(nodes[i], payloads[i]) {
			return false
		}
	}
	return true
}

// ToPayload strips identity from a node, producing the payload that would
// recreate it.
func ToPayload(node Node) Payload {
	p := Payload{Text: node.Text}
	if len(node.Children) > 0 {
		p.Children = make([]Payload, len(node.Children))
		for i, child := range node.Children {
			p.Children[i] = ToPayload(child)
		}
	}
	return p
}
