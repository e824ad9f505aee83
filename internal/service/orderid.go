package service

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

const orderIDPrefix = "ORD-"

// OrderIDGenerator hands out identifiers grouping the lines of one checkout.
type OrderIDGenerator interface {
	Next() string
}

type snowflakeIDs struct{ node *snowflake.Node }

// NewSnowflakeIDs returns a generator whose ids are strictly increasing for
// the given node. Every process writing to the same database needs its own
// node id (0-1023).
func NewSnowflakeIDs(nodeID int64) (OrderIDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrapf(err, "snowflake node %d", nodeID)
	}
	return &snowflakeIDs{node: node}, nil
}

func (s *snowflakeIDs) Next() string {
	return orderIDPrefix + s.node.Generate().String()
}
