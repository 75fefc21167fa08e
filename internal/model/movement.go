package model

import "time"

// Movement is one journaled change to an item's pool quantity. Write-offs
// carry a zero delta: the quantity leaves total stock, not the pool.
type Movement struct {
	ID            int64     `json:"id"`
	ItemID        int64     `json:"item_id"`
	LoadingListID *int64    `json:"loading_list_id,omitempty"`
	AllocationID  *int64    `json:"allocation_id,omitempty"`
	Delta         int       `json:"delta"`
	Kind          string    `json:"kind"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     *int64    `json:"created_by,omitempty"`

	// Joined field (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Movement kinds.
const (
	MovementCommit   = "commit"
	MovementIncrease = "increase"
	MovementDecrease = "decrease"
	MovementRelease  = "release"
	MovementRestock  = "restock"
	MovementWriteOff = "write_off"
	MovementAdjust   = "adjust"
)
