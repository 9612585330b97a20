// Package idgen generates report, photo, and user identifiers.
//
// Report and photo ids are snowflakes with a reduced node and sequence
// width so every id fits in 53 bits and survives a round trip through a
// JavaScript number. They increase with creation time.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// MaxNode is the highest node id accepted by New.
const MaxNode = 1<<nodeBits - 1

const (
	nodeBits = 2
	stepBits = 10
)

func init() {
	snowflake.NodeBits = nodeBits
	snowflake.StepBits = stepBits
}

// Generator hands out time-ordered int64 ids. It is safe for concurrent use.
type Generator struct {
	node *snowflake.Node
}

// New returns a generator for the given node id in [0, MaxNode].
func New(node int64) (*Generator, error) {
	if node < 0 || node > MaxNode {
		return nil, fmt.Errorf("snowflake node %d out of range [0, %d]", node, MaxNode)
	}
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &Generator{node: n}, nil
}

// NextID returns a new unique id.
func (g *Generator) NextID() int64 {
	return g.node.Generate().Int64()
}

// PhotoID returns a photo identifier of the form photo_<snowflake>.
func (g *Generator) PhotoID() string {
	return "photo_" + g.node.Generate().String()
}

// NewUserID returns a user identifier of the form user_<ksuid>.
func NewUserID() string {
	return "user_" + ksuid.New().String()
}
