package model

// Agent is a row of the read-only roster shown next to the board.
type Agent struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	LocationX   float64 `json:"location_x"`
	LocationY   float64 `json:"location_y"`
	CurrentTask string  `json:"current_task"`
	Avatar      string  `json:"avatar,omitempty"`
}
