package timestamp

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/memory"
)

// Container is an ordered list of timestamp nodes that an operation either signals or depends on. The
// container owns one reference to each node it holds.
type Container struct {
	arena *Arena
	nodes []Handle
}

func NewContainer(arena *Arena) *Container {
	if arena == nil {
		panic("timestamp container created without an arena")
	}
	return &Container{arena: arena}
}

func (c *Container) Arena() *Arena {
	return c.arena
}

// Add takes ownership of one reference to handle
func (c *Container) Add(handle Handle) {
	c.nodes = append(c.nodes, handle)
}

// AcquireNode takes a fresh node from the arena and adds it to the container
func (c *Container) AcquireNode() (Node, common.Result, error) {
	handle, res, err := c.arena.Acquire()
	if err != nil {
		return Node{}, res, err
	}
	c.Add(handle)

	node, err := c.arena.Node(handle)
	if err != nil {
		return Node{}, common.ErrorUnknown, err
	}
	return node, common.Success, nil
}

func (c *Container) Handles() []Handle {
	return c.nodes
}

func (c *Container) Len() int {
	return len(c.nodes)
}

// Peek returns the last node added to the container
func (c *Container) Peek() (Node, bool) {
	if len(c.nodes) == 0 {
		return Node{}, false
	}
	node, err := c.arena.Node(c.nodes[len(c.nodes)-1])
	if err != nil {
		return Node{}, false
	}
	return node, true
}

// Nodes resolves every handle in the container
func (c *Container) Nodes() ([]Node, error) {
	nodes := make([]Node, 0, len(c.nodes))
	for _, handle := range c.nodes {
		node, err := c.arena.Node(handle)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Assign replaces the contents of c with additional references to every node of other
func (c *Container) Assign(other *Container) error {
	if c == other {
		return nil
	}

	for _, handle := range other.nodes {
		err := c.arena.Retain(handle)
		if err != nil {
			return err
		}
	}

	err := c.ReleaseAll()
	c.nodes = append(c.nodes[:0], other.nodes...)
	return err
}

// Swap exchanges the contents of two containers
func (c *Container) Swap(other *Container) {
	c.nodes, other.nodes = other.nodes, c.nodes
}

// MoveTo appends every node to dst and empties c
func (c *Container) MoveTo(dst *Container) {
	dst.nodes = append(dst.nodes, c.nodes...)
	c.nodes = nil
}

// SetTaskCount records the submission stamp on every node
func (c *Container) SetTaskCount(stamp common.Stamp) error {
	for _, handle := range c.nodes {
		node, err := c.arena.Node(handle)
		if err != nil {
			return err
		}
		node.SetTaskCount(stamp)
	}
	return nil
}

// Allocations returns the distinct chunk allocations holding the container's nodes, for residency
func (c *Container) Allocations() ([]*memory.Allocation, error) {
	var allocations []*memory.Allocation
	seen := make(map[uint64]struct{})

	for _, handle := range c.nodes {
		allocation, err := c.arena.Allocation(handle)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[allocation.ID()]; ok {
			continue
		}
		seen[allocation.ID()] = struct{}{}
		allocations = append(allocations, allocation)
	}

	return allocations, nil
}

// ResolveDependencies drops the container's reference to nodes that can be released. With clearAll every
// node is dropped regardless of completion; the arena defers the ones that are still pending.
func (c *Container) ResolveDependencies(clearAll bool) error {
	var errs error
	pending := c.nodes[:0]

	for _, handle := range c.nodes {
		if !clearAll {
			node, err := c.arena.Node(handle)
			if err == nil && !c.arena.canBeReleased(node) {
				pending = append(pending, handle)
				continue
			}
		}

		errs = errors.CombineErrors(errs, c.arena.Release(handle))
	}

	for i := len(pending); i < len(c.nodes); i++ {
		c.nodes[i] = Handle{}
	}
	c.nodes = pending
	return errs
}

// ReleaseAll drops every node
func (c *Container) ReleaseAll() error {
	return c.ResolveDependencies(true)
}
