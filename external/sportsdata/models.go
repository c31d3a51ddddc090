package sportsdata

// teamItem is the subset of the Teams/{competition} payload used to build the
// team list.
type teamItem struct {
	TeamID   int64  `json:"TeamId"`
	Key      string `json:"Key"`
	Name     string `json:"Name"`
	FullName string `json:"FullName"`
	AreaName string `json:"AreaName"`
	Active   bool   `json:"Active"`
}
