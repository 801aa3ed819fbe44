package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/adapter"
	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ProvisionUseCase = (*provisionUC)(nil)

// ProvisionUseCase executes a ProvisioningIntent against the target router.
// It runs after the billing transaction committed, so failures here degrade
// access only, never the ledger: every step is logged and recorded on the
// outcome, and nothing is raised past this component.
type ProvisionUseCase interface {
	Provision(ctx context.Context, intent model.ProvisioningIntent) model.ProvisioningOutcome
}

type provisionUC struct {
	dial       adapter.RouterDialer
	dhcpServer string
	log        *zerolog.Logger
}

func NewProvisionUseCase(dial adapter.RouterDialer, dhcpServer string, logger *zerolog.Logger) *provisionUC {
	l := logger.With().Str("component", "ProvisionUC").Logger()
	if dhcpServer == "" {
		dhcpServer = "defconf"
	}
	return &provisionUC{dial: dial, dhcpServer: dhcpServer, log: &l}
}

func (u *provisionUC) Provision(ctx context.Context, intent model.ProvisioningIntent) model.ProvisioningOutcome {
	defer logging.TraceDuration(u.log, "ProvisionUC.Provision")()

	out := model.ProvisioningOutcome{}
	log := logging.With(ctx, u.log).With().Str("router", intent.Router.Name).Str("mac", intent.MAC.String()).Logger()

	sess, err := u.dial.Dial(ctx, &intent.Router)
	if err != nil {
		out.Error = err.Error()
		log.Error().Err(err).Msg("provisioning aborted, no session")
		metrics.IncProvisioningStep("session", false)
		return out
	}
	defer sess.Close()
	out.SessionOpened = true
	metrics.IncProvisioningStep("session", true)

	u.ensureUser(ctx, sess, intent, &out, &log)
	u.ensureBinding(ctx, sess, intent, &out, &log)
	if intent.BandwidthLimit != "" {
		u.ensureBandwidth(ctx, sess, intent, &out, &log)
	}
	return out
}

// ensureUser creates the hotspot user, or refreshes its limits when the
// router reports the name as taken.
func (u *provisionUC) ensureUser(ctx context.Context, sess adapter.RouterSession, intent model.ProvisioningIntent, out *model.ProvisioningOutcome, log *zerolog.Logger) {
	args := map[string]string{
		"name":     intent.Username,
		"password": intent.Password,
		"profile":  intent.Profile,
		"disabled": "no",
		"comment":  intent.Comment,
	}
	if intent.UptimeLimit != "" {
		args["limit-uptime"] = intent.UptimeLimit
	}
	_, err := sess.Run(ctx, "/ip/hotspot/user/add", args)
	if err == nil {
		out.UserCreated = true
		metrics.IncProvisioningStep("user", true)
		return
	}
	if isDuplicate(err) {
		setArgs := map[string]string{
			"numbers":  intent.Username,
			"comment":  intent.Comment,
			"disabled": "no",
		}
		if intent.UptimeLimit != "" {
			setArgs["limit-uptime"] = intent.UptimeLimit
		}
		if _, err := sess.Run(ctx, "/ip/hotspot/user/set", setArgs); err != nil {
			metrics.IncProvisioningStep("user", false)
			log.Warn().Err(err).Msg("hotspot user refresh failed")
			return
		}
		out.UserUpdated = true
		metrics.IncProvisioningStep("user", true)
		return
	}
	metrics.IncProvisioningStep("user", false)
	log.Warn().Err(err).Msg("hotspot user add failed")
}

// ensureBinding adds the bypassed IP binding; an existing binding is fine.
func (u *provisionUC) ensureBinding(ctx context.Context, sess adapter.RouterSession, intent model.ProvisioningIntent, out *model.ProvisioningOutcome, log *zerolog.Logger) {
	_, err := sess.Run(ctx, "/ip/hotspot/ip-binding/add", map[string]string{
		"mac-address": intent.MAC.String(),
		"type":        "bypassed",
		"comment":     intent.Comment,
	})
	if err == nil || isDuplicate(err) {
		out.BindingCreated = true
		metrics.IncProvisioningStep("binding", true)
		return
	}
	metrics.IncProvisioningStep("binding", false)
	log.Warn().Err(err).Msg("ip binding add failed")
}

// ensureBandwidth pins the device to its deterministic lease address and
// attaches a simple queue. The two steps form a pair: if the queue cannot be
// created, the lease added in this call is removed again so the device is
// not left with a reserved address and no shaping.
func (u *provisionUC) ensureBandwidth(ctx context.Context, sess adapter.RouterSession, intent model.ProvisioningIntent, out *model.ProvisioningOutcome, log *zerolog.Logger) {
	ip := intent.MAC.StaticIP()
	out.AssignedIP = ip

	leaseAdded := false
	_, err := sess.Run(ctx, "/ip/dhcp-server/lease/add", map[string]string{
		"mac-address": intent.MAC.String(),
		"address":     ip,
		"server":      u.dhcpServer,
		"comment":     intent.Comment,
	})
	switch {
	case err == nil:
		leaseAdded = true
		out.LeaseCreated = true
		metrics.IncProvisioningStep("lease", true)
	case isDuplicate(err):
		out.LeaseCreated = true
		metrics.IncProvisioningStep("lease", true)
	default:
		metrics.IncProvisioningStep("lease", false)
		log.Warn().Err(err).Str("ip", ip).Msg("dhcp lease add failed")
	}

	queueArgs := map[string]string{
		"name":      intent.MAC.QueueName(),
		"target":    ip + "/32",
		"max-limit": intent.BandwidthLimit,
		"comment":   intent.Comment,
	}
	_, err = sess.Run(ctx, "/queue/simple/add", queueArgs)
	if err != nil && isDuplicate(err) {
		_, err = sess.Run(ctx, "/queue/simple/set", map[string]string{
			"numbers":   intent.MAC.QueueName(),
			"max-limit": intent.BandwidthLimit,
		})
	}
	if err == nil {
		out.QueueCreated = true
		metrics.IncProvisioningStep("queue", true)
		return
	}
	metrics.IncProvisioningStep("queue", false)
	log.Warn().Err(err).Msg("simple queue add failed")

	if leaseAdded {
		if n := removeLeases(ctx, sess, intent.MAC); n > 0 {
			out.LeaseRolledBack = true
			out.LeaseCreated = false
			metrics.IncLeaseRollback()
			log.Info().Str("ip", ip).Msg("lease rolled back after queue failure")
		}
	}
}

// removeLeases deletes every DHCP lease bound to the MAC, returning the count.
func removeLeases(ctx context.Context, sess adapter.RouterSession, mac model.MAC) int {
	rows, err := sess.Run(ctx, "/ip/dhcp-server/lease/print", nil)
	if err != nil {
		return 0
	}
	removed := 0
	for _, row := range rows {
		if !strings.EqualFold(row["mac-address"], mac.String()) {
			continue
		}
		if id := row[".id"]; id != "" {
			if _, err := sess.Run(ctx, "/ip/dhcp-server/lease/remove", map[string]string{"numbers": id}); err == nil {
				removed++
			}
		}
	}
	return removed
}

// isDuplicate matches the router's wording for add commands that collide
// with an existing row ("already have", "entry already exists", ...).
func isDuplicate(err error) bool {
	var trap *adapter.TrapError
	if !errors.As(err, &trap) {
		return false
	}
	msg := strings.ToLower(trap.Message)
	return strings.Contains(msg, "already have") || strings.Contains(msg, "already exists")
}
