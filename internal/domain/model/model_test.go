//go:build !integration

package model_test

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
)

func TestParseMAC(t *testing.T) {
	cases := []struct {
		in      string
		want    model.MAC
		wantErr bool
	}{
		{"aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF", false},
		{"AA-BB-CC-DD-EE-FF", "AA:BB:CC:DD:EE:FF", false},
		{"aabbccddeeff", "AA:BB:CC:DD:EE:FF", false},
		{"  aa:bb:cc:dd:ee:ff ", "AA:BB:CC:DD:EE:FF", false},
		{"aa:bb:cc:dd:ee", "", true},
		{"aa:bb:cc:dd:ee:fg", "", true},
		{"", "", true},
		{"not-a-mac", "", true},
	}
	for _, c := range cases {
		got, err := model.ParseMAC(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseMAC(%q): expected error, got %q", c.in, got)
			} else if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("ParseMAC(%q): error %v is not ErrInvalidArgument", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMAC(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseMAC(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMACDerivedIdentities(t *testing.T) {
	m, err := model.ParseMAC("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatal(err)
	}
	if m.Username() != "AABBCCDDEEFF" {
		t.Errorf("Username() = %q", m.Username())
	}
	if m.QueueName() != "queue_AABBCCDDEEFF" {
		t.Errorf("QueueName() = %q", m.QueueName())
	}
}

func TestStaticIPDeterministicAndInRange(t *testing.T) {
	m1, _ := model.ParseMAC("aa:bb:cc:dd:ee:ff")
	m2, _ := model.ParseMAC("AABBCCDDEEFF")
	if m1.StaticIP() != m2.StaticIP() {
		t.Fatalf("same device, different IPs: %s vs %s", m1.StaticIP(), m2.StaticIP())
	}
	for _, raw := range []string{"00:00:00:00:00:01", "11:22:33:44:55:66", "fe:dc:ba:98:76:54"} {
		m, _ := model.ParseMAC(raw)
		ip := m.StaticIP()
		if !strings.HasPrefix(ip, "192.168.1.") {
			t.Fatalf("unexpected subnet: %s", ip)
		}
		last, err := strconv.Atoi(ip[strings.LastIndex(ip, ".")+1:])
		if err != nil {
			t.Fatalf("unparseable IP %s", ip)
		}
		if last < 100 || last > 249 {
			t.Errorf("IP host part out of range: %s", ip)
		}
	}
}

func TestBillingDays(t *testing.T) {
	cases := []struct {
		value int
		unit  model.DurationUnit
		want  int
	}{
		{30, model.DurationDays, 30},
		{1, model.DurationDays, 1},
		{48, model.DurationHours, 2},
		{24, model.DurationHours, 1},
		{6, model.DurationHours, 1}, // sub-day windows still bill one day
		{25, model.DurationHours, 1},
	}
	for _, c := range cases {
		if got := model.BillingDays(c.value, c.unit); got != c.want {
			t.Errorf("BillingDays(%d, %s) = %d, want %d", c.value, c.unit, got, c.want)
		}
	}
}

func TestAccessDuration(t *testing.T) {
	if d, err := model.AccessDuration(7, model.DurationDays); err != nil || d != 7*24*time.Hour {
		t.Errorf("AccessDuration(7, DAYS) = %v, %v", d, err)
	}
	if d, err := model.AccessDuration(6, model.DurationHours); err != nil || d != 6*time.Hour {
		t.Errorf("AccessDuration(6, HOURS) = %v, %v", d, err)
	}
	if _, err := model.AccessDuration(5, "WEEKS"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("unsupported unit: got %v", err)
	}
	if _, err := model.AccessDuration(0, model.DurationDays); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("zero value: got %v", err)
	}
}

func TestUptimeLimit(t *testing.T) {
	if s := model.UptimeLimit(7, model.DurationDays); s != "7d" {
		t.Errorf("got %q", s)
	}
	if s := model.UptimeLimit(24, model.DurationHours); s != "24h" {
		t.Errorf("got %q", s)
	}
	if d, err := model.ParseUptimeLimit("3d"); err != nil || d != 72*time.Hour {
		t.Errorf("ParseUptimeLimit(3d) = %v, %v", d, err)
	}
	if d, err := model.ParseUptimeLimit("12h"); err != nil || d != 12*time.Hour {
		t.Errorf("ParseUptimeLimit(12h) = %v, %v", d, err)
	}
	for _, bad := range []string{"", "d", "3w", "0d", "-1h", "x1d"} {
		if _, err := model.ParseUptimeLimit(bad); err == nil {
			t.Errorf("ParseUptimeLimit(%q): expected error", bad)
		}
	}
}

func TestDecodePendingUpdate(t *testing.T) {
	good := json.RawMessage(`{"duration_value":3,"duration_unit":"DAYS","plan_id":"p1","router_id":"r1"}`)
	pu, err := model.DecodePendingUpdate(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pu.DurationValue != 3 || pu.DurationUnit != model.DurationDays || pu.PlanID != "p1" || pu.RouterID != "r1" {
		t.Fatalf("decoded wrong payload: %+v", pu)
	}

	bad := []json.RawMessage{
		json.RawMessage(`{`),
		json.RawMessage(`{"duration_value":"three","duration_unit":"DAYS","plan_id":"p1","router_id":"r1"}`),
		json.RawMessage(`{"duration_value":3,"duration_unit":"DAYS","plan_id":"p1","router_id":"r1","extra":true}`),
		json.RawMessage(`{"duration_value":3,"duration_unit":"DAYS","plan_id":"","router_id":"r1"}`),
		json.RawMessage(`{"duration_value":0,"duration_unit":"DAYS","plan_id":"p1","router_id":"r1"}`),
		json.RawMessage(`{"duration_value":3,"duration_unit":"WEEKS","plan_id":"p1","router_id":"r1"}`),
	}
	for _, raw := range bad {
		if _, err := model.DecodePendingUpdate(raw); !errors.Is(err, domain.ErrInvalidPendingUpdate) {
			t.Errorf("payload %s: got %v, want ErrInvalidPendingUpdate", raw, err)
		}
	}
}
