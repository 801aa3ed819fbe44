package model

import "time"

// ProvisioningIntent is everything the router-side worker needs to grant
// access for one device. It is built inside the billing transaction and
// executed after commit, so it must not reference live ledger state.
type ProvisioningIntent struct {
	MAC            MAC    `json:"mac"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Profile        string `json:"profile"`
	UptimeLimit    string `json:"uptime_limit"`    // "" means no limit
	BandwidthLimit string `json:"bandwidth_limit"` // "" means unlimited
	Comment        string `json:"comment"`
	Router         Router `json:"-"`
}

// ProvisioningOutcome records per-step results of executing an intent.
// Steps are independent; a failed step never hides a later one except for
// the queue step, whose failure rolls back the lease created alongside it.
type ProvisioningOutcome struct {
	SessionOpened   bool   `json:"session_opened"`
	UserCreated     bool   `json:"user_created"`
	UserUpdated     bool   `json:"user_updated"`
	BindingCreated  bool   `json:"binding_created"`
	LeaseCreated    bool   `json:"lease_created"`
	QueueCreated    bool   `json:"queue_created"`
	LeaseRolledBack bool   `json:"lease_rolled_back"`
	AssignedIP      string `json:"assigned_ip,omitempty"`
	Error           string `json:"error,omitempty"`
}

// RegistrationRequest is the guest-facing self-registration payload.
type RegistrationRequest struct {
	MACAddress     string `json:"mac_address" validate:"required"`
	Name           string `json:"name"`
	Profile        string `json:"profile"`
	UptimeLimit    string `json:"uptime_limit"`
	BandwidthLimit string `json:"bandwidth_limit"`
	OwnerID        string `json:"owner_id"`
}

// RegistrationResult reports a completed self-registration.
type RegistrationResult struct {
	MAC            MAC        `json:"mac"`
	Username       string     `json:"username"`
	RouterName     string     `json:"router_name"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	BindingCreated bool       `json:"binding_created"`
	LeaseCreated   bool       `json:"lease_created"`
	QueueCreated   bool       `json:"queue_created"`
	AssignedIP     string     `json:"assigned_ip,omitempty"`
}

// SessionInfo is one active hotspot session.
type SessionInfo struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Address   string `json:"address"`
	Uptime    string `json:"uptime"`
	SessionID string `json:"session_id,omitempty"`
}

// MACStatus merges the router-side view of one device.
type MACStatus struct {
	MAC         MAC           `json:"mac"`
	Registered  bool          `json:"registered"`
	Disabled    bool          `json:"disabled"`
	Profile     string        `json:"profile,omitempty"`
	UptimeLimit string        `json:"uptime_limit,omitempty"`
	Comment     string        `json:"comment,omitempty"`
	Bypassed    bool          `json:"bypassed"`
	Sessions    []SessionInfo `json:"sessions"`
}

// SyncReport is the read-only drift report between the router's hotspot
// users and the ledger's customers for that router.
type SyncReport struct {
	RouterID     string   `json:"router_id"`
	RouterName   string   `json:"router_name"`
	Synced       int      `json:"synced"`
	OnlyInRouter []string `json:"only_in_router"`
	OnlyInLedger []string `json:"only_in_ledger"`
}

// RemovalReport counts rows deleted during a full device teardown.
type RemovalReport struct {
	MAC             MAC `json:"mac"`
	SessionsRemoved int `json:"sessions_removed"`
	UsersRemoved    int `json:"users_removed"`
	BindingsRemoved int `json:"bindings_removed"`
	QueuesRemoved   int `json:"queues_removed"`
	LeasesRemoved   int `json:"leases_removed"`
}

// RouterStats is a point-in-time operational snapshot of one router.
type RouterStats struct {
	RouterID       string            `json:"router_id"`
	RouterName     string            `json:"router_name"`
	HotspotUsers   int               `json:"hotspot_users"`
	ActiveSessions []SessionInfo     `json:"active_sessions"`
	Resource       map[string]string `json:"resource"`
}
