package orderitem

// QueryOrderItemsModel represents filter parameters for querying order items.
type QueryOrderItemsModel struct {
	OrderIDs []int64 `json:"orderIds,omitempty"`
}
