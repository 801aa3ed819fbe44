package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/adapter"
	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ DeviceUseCase = (*deviceUC)(nil)

// DeviceUseCase covers router-side device management: status lookup, drift
// detection against the ledger, session disconnect, full teardown, and
// operational stats.
type DeviceUseCase interface {
	Status(ctx context.Context, routerID string, mac model.MAC) (*model.MACStatus, error)
	Sync(ctx context.Context, routerID string) (*model.SyncReport, error)
	RemoveAll(ctx context.Context, routerID string, mac model.MAC) (*model.RemovalReport, error)
	Disconnect(ctx context.Context, routerID string, mac model.MAC) (int, error)
	Stats(ctx context.Context, routerID string) (*model.RouterStats, error)
}

type deviceUC struct {
	routers   repository.RouterRepository
	customers repository.CustomerRepository
	dial      adapter.RouterDialer
	locks     adapter.Locker
	lockTTL   time.Duration
	log       *zerolog.Logger
}

func NewDeviceUseCase(
	routers repository.RouterRepository,
	customers repository.CustomerRepository,
	dial adapter.RouterDialer,
	locks adapter.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *deviceUC {
	l := logger.With().Str("component", "DeviceUC").Logger()
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &deviceUC{
		routers:   routers,
		customers: customers,
		dial:      dial,
		locks:     locks,
		lockTTL:   lockTTL,
		log:       &l,
	}
}

func (u *deviceUC) session(ctx context.Context, routerID string) (*model.Router, adapter.RouterSession, error) {
	router, err := u.routers.FindByID(ctx, nil, routerID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: router %s", domain.ErrNotFound, routerID)
	}
	sess, err := u.dial.Dial(ctx, router)
	if err != nil {
		return nil, nil, err
	}
	return router, sess, nil
}

// Status merges the hotspot user, binding, and active-session view of one
// device as the router sees it right now.
func (u *deviceUC) Status(ctx context.Context, routerID string, mac model.MAC) (*model.MACStatus, error) {
	_, sess, err := u.session(ctx, routerID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	username := mac.Username()
	st := &model.MACStatus{MAC: mac, Sessions: []model.SessionInfo{}}

	users, err := sess.Run(ctx, "/ip/hotspot/user/print", nil)
	if err != nil {
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	for _, row := range users {
		if strings.EqualFold(row["name"], username) {
			st.Registered = true
			st.Disabled = row["disabled"] == "true" || row["disabled"] == "yes"
			st.Profile = row["profile"]
			st.UptimeLimit = row["limit-uptime"]
			st.Comment = row["comment"]
			break
		}
	}

	bindings, err := sess.Run(ctx, "/ip/hotspot/ip-binding/print", nil)
	if err == nil {
		for _, row := range bindings {
			if strings.EqualFold(row["mac-address"], mac.String()) && row["type"] == "bypassed" {
				st.Bypassed = true
				break
			}
		}
	}

	actives, err := sess.Run(ctx, "/ip/hotspot/active/print", nil)
	if err == nil {
		for _, row := range actives {
			if strings.EqualFold(row["user"], username) || strings.EqualFold(row["mac-address"], mac.String()) {
				st.Sessions = append(st.Sessions, sessionFromRow(row))
			}
		}
	}
	return st, nil
}

// Sync computes the read-only drift report: hotspot users on the router vs
// customers assigned to it in the ledger, compared by lower-cased username.
func (u *deviceUC) Sync(ctx context.Context, routerID string) (*model.SyncReport, error) {
	defer logging.TraceDuration(u.log, "DeviceUC.Sync")()

	router, sess, err := u.session(ctx, routerID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	rows, err := sess.Run(ctx, "/ip/hotspot/user/print", nil)
	if err != nil {
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	onRouter := make(map[string]bool, len(rows))
	for _, row := range rows {
		if name := row["name"]; name != "" {
			onRouter[strings.ToLower(name)] = true
		}
	}

	customers, err := u.customers.ListByRouter(ctx, nil, routerID)
	if err != nil {
		return nil, err
	}
	inLedger := make(map[string]bool, len(customers))
	for _, c := range customers {
		inLedger[strings.ToLower(c.MAC.Username())] = true
	}

	report := &model.SyncReport{
		RouterID:     routerID,
		RouterName:   router.Name,
		OnlyInRouter: []string{},
		OnlyInLedger: []string{},
	}
	for name := range onRouter {
		if inLedger[name] {
			report.Synced++
		} else {
			report.OnlyInRouter = append(report.OnlyInRouter, name)
		}
	}
	for name := range inLedger {
		if !onRouter[name] {
			report.OnlyInLedger = append(report.OnlyInLedger, name)
		}
	}
	sort.Strings(report.OnlyInRouter)
	sort.Strings(report.OnlyInLedger)

	metrics.SetRouterDrift(router.Name, len(report.OnlyInRouter), len(report.OnlyInLedger))
	return report, nil
}

// RemoveAll tears down every trace of a device: active sessions, the hotspot
// user, all matching bindings, its queues, and all matching leases. Cleanup
// is unconditional; rows are removed wherever they match, regardless of how
// they got there.
func (u *deviceUC) RemoveAll(ctx context.Context, routerID string, mac model.MAC) (*model.RemovalReport, error) {
	defer logging.TraceDuration(u.log, "DeviceUC.RemoveAll")()

	token, err := u.locks.TryLock(ctx, deviceLockKey(routerID, mac), u.lockTTL)
	if err != nil {
		return nil, domain.ErrLockBusy
	}
	defer func() { _ = u.locks.Unlock(context.WithoutCancel(ctx), deviceLockKey(routerID, mac), token) }()

	router, sess, err := u.session(ctx, routerID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	username := mac.Username()
	report := &model.RemovalReport{MAC: mac}

	report.SessionsRemoved = u.removeMatching(ctx, sess, "/ip/hotspot/active", func(row map[string]string) bool {
		return strings.EqualFold(row["user"], username) || strings.EqualFold(row["mac-address"], mac.String())
	})
	report.UsersRemoved = u.removeMatching(ctx, sess, "/ip/hotspot/user", func(row map[string]string) bool {
		return strings.EqualFold(row["name"], username)
	})
	report.BindingsRemoved = u.removeMatching(ctx, sess, "/ip/hotspot/ip-binding", func(row map[string]string) bool {
		return strings.EqualFold(row["mac-address"], mac.String())
	})
	report.QueuesRemoved = u.removeMatching(ctx, sess, "/queue/simple", func(row map[string]string) bool {
		return strings.EqualFold(row["name"], mac.QueueName())
	})
	report.LeasesRemoved = u.removeMatching(ctx, sess, "/ip/dhcp-server/lease", func(row map[string]string) bool {
		return strings.EqualFold(row["mac-address"], mac.String())
	})

	u.log.Info().Str("router", router.Name).Str("mac", mac.String()).
		Int("users", report.UsersRemoved).Int("bindings", report.BindingsRemoved).
		Int("queues", report.QueuesRemoved).Int("leases", report.LeasesRemoved).
		Msg("device fully removed")
	return report, nil
}

// Disconnect drops the device's active hotspot sessions only, leaving the
// user and bindings in place. Used for self-service logout.
func (u *deviceUC) Disconnect(ctx context.Context, routerID string, mac model.MAC) (int, error) {
	_, sess, err := u.session(ctx, routerID)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	username := mac.Username()
	n := u.removeMatching(ctx, sess, "/ip/hotspot/active", func(row map[string]string) bool {
		return strings.EqualFold(row["user"], username) || strings.EqualFold(row["mac-address"], mac.String())
	})
	return n, nil
}

// Stats reads a point-in-time operational snapshot of the router.
func (u *deviceUC) Stats(ctx context.Context, routerID string) (*model.RouterStats, error) {
	router, sess, err := u.session(ctx, routerID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	stats := &model.RouterStats{
		RouterID:       routerID,
		RouterName:     router.Name,
		ActiveSessions: []model.SessionInfo{},
		Resource:       map[string]string{},
	}

	users, err := sess.Run(ctx, "/ip/hotspot/user/print", nil)
	if err != nil {
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	stats.HotspotUsers = len(users)

	actives, err := sess.Run(ctx, "/ip/hotspot/active/print", nil)
	if err == nil {
		for _, row := range actives {
			stats.ActiveSessions = append(stats.ActiveSessions, sessionFromRow(row))
		}
	}

	if rows, err := sess.Run(ctx, "/system/resource/print", nil); err == nil && len(rows) > 0 {
		for _, key := range []string{"uptime", "version", "cpu-load", "free-memory", "total-memory", "board-name"} {
			if v := rows[0][key]; v != "" {
				stats.Resource[key] = v
			}
		}
	}
	return stats, nil
}

// removeMatching prints a namespace and removes every row the predicate
// matches, returning how many removals succeeded.
func (u *deviceUC) removeMatching(ctx context.Context, sess adapter.RouterSession, base string, match func(map[string]string) bool) int {
	rows, err := sess.Run(ctx, base+"/print", nil)
	if err != nil {
		u.log.Warn().Str("command", base+"/print").Err(err).Msg("listing failed during removal")
		return 0
	}
	removed := 0
	for _, row := range rows {
		if !match(row) {
			continue
		}
		id := row[".id"]
		if id == "" {
			continue
		}
		if _, err := sess.Run(ctx, base+"/remove", map[string]string{"numbers": id}); err != nil {
			u.log.Warn().Str("command", base+"/remove").Str("id", id).Err(err).Msg("row removal failed")
			continue
		}
		removed++
	}
	return removed
}

func sessionFromRow(row map[string]string) model.SessionInfo {
	return model.SessionInfo{
		ID:        row[".id"],
		User:      row["user"],
		Address:   row["address"],
		Uptime:    row["uptime"],
		SessionID: row["session-id"],
	}
}
