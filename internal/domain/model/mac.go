package model

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"

	"isp-hotspot-billing/internal/domain"
)

// MAC is a hardware address in canonical form: uppercase, colon-separated
// (AA:BB:CC:DD:EE:FF). Construct it through ParseMAC only.
type MAC string

var macRe = regexp.MustCompile(`^[0-9A-Fa-f]{2}([:-]?[0-9A-Fa-f]{2}){5}$`)

// ParseMAC validates and normalizes a raw MAC address. Colon- and
// dash-separated forms as well as bare 12-hex-digit strings are accepted;
// comparison is case-insensitive.
func ParseMAC(raw string) (MAC, error) {
	s := strings.TrimSpace(raw)
	if !macRe.MatchString(s) {
		return "", fmt.Errorf("%w: mac %q", domain.ErrInvalidArgument, raw)
	}
	hexOnly := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(s))
	var b strings.Builder
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hexOnly[i : i+2])
	}
	return MAC(b.String()), nil
}

func (m MAC) String() string { return string(m) }

// Username is the hotspot identity derived from the address: the twelve hex
// digits with separators stripped. It doubles as the initial password.
func (m MAC) Username() string {
	return strings.NewReplacer(":", "", "-", "").Replace(string(m))
}

// QueueName returns the simple-queue name owned by this device.
func (m MAC) QueueName() string {
	return "queue_" + m.Username()
}

// StaticIP derives the deterministic lease address for this device:
// 192.168.1.100 plus an md5-based offset in [0,150).
func (m MAC) StaticIP() string {
	sum := md5.Sum([]byte(string(m)))
	v := int(sum[0])<<8 | int(sum[1])
	return fmt.Sprintf("192.168.1.%d", 100+v%150)
}
