package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Node ids used by the two processes so ids never collide across them.
const (
	NodeServer int64 = 1
	NodeWorker int64 = 2
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init configures the snowflake node for this process. Calling it again with
// a different node id replaces the node; ids stay unique because the node id
// is embedded in every generated value.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}

	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New returns a time-ordered int64 id. If Init was never called the node
// defaults to 0, which keeps tests and one-off tools working.
func New() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()

	return n.Generate().Int64()
}
