// Package id issues time-ordered int64 identifiers for persisted schedule runs.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// defaultNode is used when New is called before Init (tests, the CLI).
const defaultNode = 1

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets the Snowflake node for this process. Later calls are ignored.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()
	if node != nil {
		return nil
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// New generates a new unique int64 ID.
func New() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(defaultNode)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
