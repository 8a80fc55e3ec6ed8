// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package spatial

import "sync"

// CoordinateSystem is an opaque handle identifying the space a pose is
// expressed in.
//
// TransformTo returns the matrix mapping coordinates expressed in the
// receiver into coordinates expressed in target. The boolean is false when
// the two systems are not spatially related; the matrix is then meaningless.
type CoordinateSystem interface {
	TransformTo(target CoordinateSystem) (Matrix, bool)
}

// Node is a CoordinateSystem placed in a tree of frames. Two nodes are
// related when they share a root.
//
// The placement of a node relative to its parent may be updated with
// SetToParent; Node is safe for concurrent use.
type Node struct {
	name   string
	parent *Node

	mu       sync.RWMutex
	toParent Matrix
}

// NewRoot returns a node with no parent.
func NewRoot(name string) *Node {
	return &Node{name: name, toParent: Identity()}
}

// Child returns a new node whose coordinates map into n through toParent.
func (n *Node) Child(name string, toParent Matrix) *Node {
	return &Node{name: name, parent: n, toParent: toParent}
}

// Name returns the node's debug name.
func (n *Node) Name() string { return n.name }

// SetToParent replaces the transform from n into its parent.
func (n *Node) SetToParent(m Matrix) {
	n.mu.Lock()
	n.toParent = m
	n.mu.Unlock()
}

// TransformTo implements CoordinateSystem. Only other *Node values can be
// related to n.
func (n *Node) TransformTo(target CoordinateSystem) (Matrix, bool) {
	if n == nil {
		return Matrix{}, false
	}
	other, ok := target.(*Node)
	if !ok || other == nil {
		return Matrix{}, false
	}
	fromRoot, fromMatrix := n.toRoot()
	toRoot, toMatrix := other.toRoot()
	if fromRoot != toRoot {
		return Matrix{}, false
	}
	inv, err := toMatrix.Inverse()
	if err != nil {
		return Matrix{}, false
	}
	return inv.Mul(fromMatrix), true
}

// toRoot returns the root of n and the transform from n into it.
func (n *Node) toRoot() (*Node, Matrix) {
	m := Identity()
	cur := n
	for cur.parent != nil {
		cur.mu.RLock()
		m = cur.toParent.Mul(m)
		cur.mu.RUnlock()
		cur = cur.parent
	}
	return cur, m
}
