package order

// QueryOrdersModel represents filter parameters for querying orders.
// Empty slices do not filter.
type QueryOrdersModel struct {
	IDs           []int64  `json:"ids,omitempty"`
	RestaurantIDs []int64  `json:"restaurantIds,omitempty"`
	Statuses      []Status `json:"statuses,omitempty"`
}

// Matches reports whether o passes the filter.
func (q QueryOrdersModel) Matches(o Order) bool {
	return matchAny(q.IDs, o.ID) &&
		matchAny(q.RestaurantIDs, o.RestaurantID) &&
		matchAny(q.Statuses, o.Status)
}

func matchAny[T comparable](values []T, v T) bool {
	if len(values) == 0 {
		return true
	}
	for _, value := range values {
		if value == v {
			return true
		}
	}

	return false
}
