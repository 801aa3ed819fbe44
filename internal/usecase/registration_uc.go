package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/adapter"
	"isp-hotspot-billing/internal/domain/ports/repository"
	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ RegistrationUseCase = (*registrationUC)(nil)

// RegistrationUseCase self-registers a guest device on a router's hotspot.
// It is guest-facing: no ownership filter on the router, conflict on
// duplicate MACs, and a per-device lock so concurrent register/remove calls
// for one MAC are serialized.
type RegistrationUseCase interface {
	Register(ctx context.Context, routerID string, req model.RegistrationRequest) (*model.RegistrationResult, error)
}

type registrationUC struct {
	routers    repository.RouterRepository
	dial       adapter.RouterDialer
	locks      adapter.Locker
	lockTTL    time.Duration
	profile    string
	dhcpServer string
	validate   *validator.Validate
	log        *zerolog.Logger
}

func NewRegistrationUseCase(
	routers repository.RouterRepository,
	dial adapter.RouterDialer,
	locks adapter.Locker,
	lockTTL time.Duration,
	profile, dhcpServer string,
	logger *zerolog.Logger,
) *registrationUC {
	l := logger.With().Str("component", "RegistrationUC").Logger()
	if profile == "" {
		profile = "default"
	}
	if dhcpServer == "" {
		dhcpServer = "defconf"
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &registrationUC{
		routers:    routers,
		dial:       dial,
		locks:      locks,
		lockTTL:    lockTTL,
		profile:    profile,
		dhcpServer: dhcpServer,
		validate:   validator.New(),
		log:        &l,
	}
}

func (u *registrationUC) Register(ctx context.Context, routerID string, req model.RegistrationRequest) (*model.RegistrationResult, error) {
	defer logging.TraceDuration(u.log, "RegistrationUC.Register")()

	if err := u.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	mac, err := model.ParseMAC(req.MACAddress)
	if err != nil {
		metrics.IncRegistration("error")
		return nil, err
	}

	var expiresAt *time.Time
	if req.UptimeLimit != "" {
		d, err := model.ParseUptimeLimit(req.UptimeLimit)
		if err != nil {
			metrics.IncRegistration("error")
			return nil, err
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	router, err := u.routers.FindByID(ctx, nil, routerID)
	if err != nil {
		metrics.IncRegistration("error")
		return nil, fmt.Errorf("%w: router %s", domain.ErrNotFound, routerID)
	}

	token, err := u.locks.TryLock(ctx, deviceLockKey(routerID, mac), u.lockTTL)
	if err != nil {
		metrics.IncRegistration("busy")
		return nil, domain.ErrLockBusy
	}
	defer func() { _ = u.locks.Unlock(context.WithoutCancel(ctx), deviceLockKey(routerID, mac), token) }()

	sess, err := u.dial.Dial(ctx, router)
	if err != nil {
		metrics.IncRegistration("error")
		return nil, err
	}
	defer sess.Close()

	username := mac.Username()
	users, err := sess.Run(ctx, "/ip/hotspot/user/print", nil)
	if err != nil {
		metrics.IncRegistration("error")
		return nil, fmt.Errorf("list hotspot users: %w", err)
	}
	for _, row := range users {
		if strings.EqualFold(row["name"], username) {
			metrics.IncRegistration("conflict")
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyRegistered, mac)
		}
	}

	comment := u.registrationComment(mac, router.Name, req, expiresAt)

	userArgs := map[string]string{
		"name":     username,
		"password": username,
		"profile":  u.profileFor(req),
		"disabled": "no",
		"comment":  comment,
	}
	if req.UptimeLimit != "" {
		userArgs["limit-uptime"] = req.UptimeLimit
	}
	if _, err := sess.Run(ctx, "/ip/hotspot/user/add", userArgs); err != nil {
		metrics.IncRegistration("error")
		return nil, fmt.Errorf("add hotspot user: %w", err)
	}

	result := &model.RegistrationResult{
		MAC:        mac,
		Username:   username,
		RouterName: router.Name,
		ExpiresAt:  expiresAt,
	}

	if _, err := sess.Run(ctx, "/ip/hotspot/ip-binding/add", map[string]string{
		"mac-address": mac.String(),
		"type":        "bypassed",
		"comment":     comment,
	}); err == nil {
		result.BindingCreated = true
	} else {
		u.log.Warn().Str("mac", mac.String()).Err(err).Msg("ip binding add failed during registration")
	}

	if req.BandwidthLimit != "" {
		u.addBandwidth(ctx, sess, mac, req.BandwidthLimit, comment, result)
	}

	metrics.IncRegistration("created")
	u.log.Info().Str("mac", mac.String()).Str("router", router.Name).Msg("device registered")
	return result, nil
}

// addBandwidth pins a lease and shapes it with a simple queue. A queue
// failure removes the lease added here so a failed registration leaves no
// half-configured address reservation behind.
func (u *registrationUC) addBandwidth(ctx context.Context, sess adapter.RouterSession, mac model.MAC, limit, comment string, result *model.RegistrationResult) {
	ip := mac.StaticIP()
	result.AssignedIP = ip

	if _, err := sess.Run(ctx, "/ip/dhcp-server/lease/add", map[string]string{
		"mac-address": mac.String(),
		"address":     ip,
		"server":      u.dhcpServer,
		"comment":     comment,
	}); err != nil {
		u.log.Warn().Str("mac", mac.String()).Err(err).Msg("dhcp lease add failed during registration")
		return
	}
	result.LeaseCreated = true

	if _, err := sess.Run(ctx, "/queue/simple/add", map[string]string{
		"name":      mac.QueueName(),
		"target":    ip + "/32",
		"max-limit": limit,
		"comment":   comment,
	}); err != nil {
		u.log.Warn().Str("mac", mac.String()).Err(err).Msg("queue add failed, rolling back lease")
		if removeLeases(ctx, sess, mac) > 0 {
			result.LeaseCreated = false
			metrics.IncLeaseRollback()
		}
		return
	}
	result.QueueCreated = true
}

func (u *registrationUC) profileFor(req model.RegistrationRequest) string {
	if req.Profile != "" {
		return req.Profile
	}
	return u.profile
}

func (u *registrationUC) registrationComment(mac model.MAC, routerName string, req model.RegistrationRequest, expiresAt *time.Time) string {
	owner := req.OwnerID
	if owner == "" {
		owner = "Guest"
	}
	c := fmt.Sprintf("MAC: %s | Router: %s | Owner: %s", mac, routerName, owner)
	if req.Name != "" {
		c += " | " + req.Name
	}
	if expiresAt != nil {
		c += " | Expires: " + expiresAt.Format(time.RFC3339)
	}
	return c
}

func deviceLockKey(routerID string, mac model.MAC) string {
	return "prov:" + routerID + ":" + mac.Username()
}
