package model

import "time"

// Router is a managed RouterOS gateway reachable over the binary API port.
type Router struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IPAddress string    `json:"ip_address"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Port      int       `json:"port"`
	CreatedAt time.Time `json:"created_at"`
}

// APIPort returns the configured API port, defaulting to 8728.
func (r *Router) APIPort() int {
	if r.Port <= 0 {
		return 8728
	}
	return r.Port
}
