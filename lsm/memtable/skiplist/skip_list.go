package skiplist

import (
	"math/rand"

	mi "stampdb/lsm/memtable/memtable_interface"
)

// Compile-time assertion that SkipList implements the Memtable interface.
var _ mi.Memtable = (*SkipList)(nil)

type Node struct {
	key       uint64
	value     uint64
	nextNodes []*Node // i-th Node is at the i-th level
}

// NewNode creates a new node for the Skip List.
// key: the key of the node.
// value: the value of the node.
// height: the number of levels the node spans.
func NewNode(key uint64, value uint64, height uint64) *Node {
	return &Node{
		key:       key,
		value:     value,
		nextNodes: make([]*Node, height),
	}
}

// SkipList is a probabilistic ordered map. It maintains multiple levels
// of linked lists, where each level is a subset of the level below it;
// the lowest level links every node in ascending key order. Search,
// insertion and ordered iteration are all driven off those links.
// The head node is a sentinel whose key is never compared.
type SkipList struct {
	maxHeight     uint64 // Maximum height of the Skip List
	currentHeight uint64 // Current height of the Skip List
	head          *Node  // Pointer to the sentinel head node
	length        int    // Number of distinct keys stored
}

// DefaultMaxHeight bounds the tower height of any node. 16 levels keep
// expected O(log n) behavior well past the memtable sizes a single log
// file can back.
const DefaultMaxHeight = 16

// New creates a new SkipList instance.
// maxHeight: the maximum number of levels in the Skip List.
func New(maxHeight uint64) *SkipList {
	return &SkipList{
		maxHeight:     maxHeight,
		currentHeight: 1,
		head:          NewNode(0, 0, maxHeight),
	}
}

// roll generates a random height for a new node.
// The height is limited by the maximum height of the Skip List.
func (s *SkipList) roll() uint64 {
	var height uint64 = 1
	for rand.Int31n(2) == 1 && height < s.maxHeight {
		height++
	}
	return height
}

// findPredecessors records the last node visited at each level on the
// way down to key. After the descent, the level-0 successor of the
// returned slice's first element is the smallest node with key >= key.
func (s *SkipList) findPredecessors(key uint64) []*Node {
	nodesToUpdate := make([]*Node, s.maxHeight)
	currentNode := s.head

	for i := int(s.currentHeight) - 1; i >= 0; i-- {
		for currentNode.nextNodes[i] != nil && currentNode.nextNodes[i].key < key {
			currentNode = currentNode.nextNodes[i]
		}
		nodesToUpdate[i] = currentNode
	}
	return nodesToUpdate
}

// Put inserts a new key-value pair into the Skip List, or overwrites
// the value if the key is already present.
func (s *SkipList) Put(key uint64, value uint64) {
	nodesToUpdate := s.findPredecessors(key)

	if next := nodesToUpdate[0].nextNodes[0]; next != nil && next.key == key {
		next.value = value
		return
	}

	height := s.roll() // Random height for the new node.

	// If the new height exceeds the current height, link the head node to the new node.
	if height > s.currentHeight {
		for i := s.currentHeight; i < height; i++ {
			nodesToUpdate[i] = s.head
		}
		s.currentHeight = height
	}

	newNode := NewNode(key, value, height)

	// Links the new node with the existing nodes at all levels.
	for i := uint64(0); i < height; i++ {
		newNode.nextNodes[i] = nodesToUpdate[i].nextNodes[i]
		nodesToUpdate[i].nextNodes[i] = newNode
	}
	s.length++
}

// Get returns the value stored for key and whether the key is present.
func (s *SkipList) Get(key uint64) (uint64, bool) {
	nodesToUpdate := s.findPredecessors(key)

	if next := nodesToUpdate[0].nextNodes[0]; next != nil && next.key == key {
		return next.value, true
	}
	return 0, false
}

// Len returns the number of distinct keys stored.
func (s *SkipList) Len() int {
	return s.length
}

// Ascend walks the lowest level, calling fn for every key-value pair in
// ascending key order. Iteration stops at the first error.
func (s *SkipList) Ascend(fn func(key uint64, value uint64) error) error {
	for node := s.head.nextNodes[0]; node != nil; node = node.nextNodes[0] {
		if err := fn(node.key, node.value); err != nil {
			return err
		}
	}
	return nil
}
