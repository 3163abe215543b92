package model

type node struct {
	parent int32
	left   int32
	right  int32
	count  int64
	binary bool
}

// buildTree constructs the Huffman tree over the output classes. counts must
// be sorted in descending order, which the dictionary guarantees.
func (m *Model) buildTree(counts []int64) {
	osz := int32(len(counts))
	if osz == 0 {
		return
	}
	m.tree = make([]node, 2*osz-1)
	for i := range m.tree {
		m.tree[i] = node{parent: -1, left: -1, right: -1, count: 1e15}
	}
	for i := int32(0); i < osz; i++ {
		m.tree[i].count = counts[i]
	}
	leaf := osz - 1
	next := osz
	for i := osz; i < 2*osz-1; i++ {
		var mini [2]int32
		for j := 0; j < 2; j++ {
			if leaf >= 0 && m.tree[leaf].count < m.tree[next].count {
				mini[j] = leaf
				leaf--
			} else {
				mini[j] = next
				next++
			}
		}
		m.tree[i].left = mini[0]
		m.tree[i].right = mini[1]
		m.tree[i].count = m.tree[mini[0]].count + m.tree[mini[1]].count
		m.tree[mini[0]].parent = i
		m.tree[mini[1]].parent = i
		m.tree[mini[1]].binary = true
	}
	m.paths = make([][]int32, osz)
	m.codes = make([][]bool, osz)
	for i := int32(0); i < osz; i++ {
		var path []int32
		var code []bool
		for j := i; m.tree[j].parent != -1; j = m.tree[j].parent {
			path = append(path, m.tree[j].parent-osz)
			code = append(code, m.tree[j].binary)
		}
		m.paths[i] = path
		m.codes[i] = code
	}
}
