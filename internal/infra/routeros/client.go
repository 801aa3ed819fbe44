package routeros

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/domain/ports/adapter"
	"isp-hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ adapter.RouterDialer = (*Dialer)(nil)

// Dialer opens authenticated RouterOS API sessions over TCP.
type Dialer struct {
	connectTimeout time.Duration
	commandTimeout time.Duration
	log            *zerolog.Logger
}

func NewDialer(connectTimeout, commandTimeout time.Duration, logger *zerolog.Logger) *Dialer {
	l := logger.With().Str("component", "RouterOSDialer").Logger()
	return &Dialer{
		connectTimeout: connectTimeout,
		commandTimeout: commandTimeout,
		log:            &l,
	}
}

func (d *Dialer) Dial(ctx context.Context, r *model.Router) (adapter.RouterSession, error) {
	addr := net.JoinHostPort(r.IPAddress, strconv.Itoa(r.APIPort()))
	nd := net.Dialer{Timeout: d.connectTimeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		metrics.IncRouterDialFailure()
		d.log.Warn().Str("router", r.Name).Str("addr", addr).Err(err).Msg("dial failed")
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrRouterUnavailable, addr, err)
	}

	s := &session{
		conn:    conn,
		rd:      bufio.NewReader(conn),
		timeout: d.commandTimeout,
		log:     d.log,
	}
	if err := s.login(ctx, r.Username, r.Password); err != nil {
		metrics.IncRouterDialFailure()
		_ = conn.Close()
		d.log.Warn().Str("router", r.Name).Err(err).Msg("login failed")
		return nil, fmt.Errorf("%w: login: %v", domain.ErrRouterUnavailable, err)
	}
	return s, nil
}

type session struct {
	conn    net.Conn
	rd      *bufio.Reader
	timeout time.Duration
	log     *zerolog.Logger
}

// login uses the plain post-6.43 scheme: credentials in the initial sentence.
func (s *session) login(ctx context.Context, username, password string) error {
	words := []string{"/login", "=name=" + username, "=password=" + password}
	_, err := s.exchange(ctx, "/login", words)
	return err
}

func (s *session) Run(ctx context.Context, command string, args map[string]string) ([]map[string]string, error) {
	words := make([]string, 0, len(args)+1)
	words = append(words, command)
	for k, v := range args {
		words = append(words, "="+k+"="+v)
	}

	start := time.Now()
	rows, err := s.exchange(ctx, command, words)
	metrics.ObserveRouterCommand(command, float64(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		s.log.Debug().Str("command", command).Err(err).Msg("command failed")
		return nil, err
	}
	return rows, nil
}

// exchange writes one sentence and reads reply sentences until !done.
// Every !re contributes a row; !trap aborts with the router's message.
func (s *session) exchange(ctx context.Context, command string, words []string) ([]map[string]string, error) {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if err := writeSentence(s.conn, words); err != nil {
		return nil, fmt.Errorf("write %s: %w", command, err)
	}

	var rows []map[string]string
	var trapMsg string
	for {
		sentence, err := readSentence(s.rd)
		if err != nil {
			return nil, fmt.Errorf("read %s reply: %w", command, err)
		}
		if len(sentence) == 0 {
			continue
		}
		switch sentence[0] {
		case "!re":
			rows = append(rows, parseAttributes(sentence[1:]))
		case "!trap", "!fatal":
			attrs := parseAttributes(sentence[1:])
			if m := attrs["message"]; m != "" {
				trapMsg = m
			} else {
				trapMsg = "unknown error"
			}
			if sentence[0] == "!fatal" {
				return nil, &adapter.TrapError{Command: command, Message: trapMsg}
			}
		case "!done":
			if trapMsg != "" {
				return nil, &adapter.TrapError{Command: command, Message: trapMsg}
			}
			return rows, nil
		}
	}
}

func (s *session) Close() error {
	// Best effort; the router drops the session when the TCP stream closes.
	_ = s.conn.SetDeadline(time.Now().Add(time.Second))
	_ = writeSentence(s.conn, []string{"/quit"})
	return s.conn.Close()
}

// parseAttributes turns "=key=value" words into a row map. API attribute
// words (".tag=...") and anything else without the leading '=' are skipped.
func parseAttributes(words []string) map[string]string {
	row := make(map[string]string, len(words))
	for _, w := range words {
		if !strings.HasPrefix(w, "=") {
			continue
		}
		kv := strings.SplitN(w[1:], "=", 2)
		if len(kv) == 2 {
			row[kv[0]] = kv[1]
		}
	}
	return row
}
