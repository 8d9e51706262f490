package models

// DashboardStats are the counters of the admin dashboard.
type DashboardStats struct {
	Users          int `json:"users"`
	Artworks       int `json:"artworks"`
	Published      int `json:"published"`
	ForSale        int `json:"for_sale"`
	Sold           int `json:"sold"`
	PendingOrders  int `json:"pending_orders"`
	PaidOrders     int `json:"paid_orders"`
	UnreadMessages int `json:"unread_messages"`
	PressItems     int `json:"press_items"`
}
