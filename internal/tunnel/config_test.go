package tunnel

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const testPrivateKey = "MIKtfK9lvhBbMU9xThDJ+fe7XXN009ljIKiVDxEMXn0="
const testPresharedKey = "Y2NjY2NjY2NjY2NjY2NjY2NjY2NjY2NjY2NjY2NjY2M="

const testConfig = `# A WireGuard config used for testing
[Interface]
Address = 192.0.2.0/32
PrivateKey = ` + testPrivateKey + `
[Peer]
PublicKey = ExO1PPLobAXSOCDFs7GpwJcG+5VMQZD9Pk73YqxXoS8=
PresharedKey = ` + testPresharedKey + `
Endpoint = 192.0.2.1/32:51820
AllowedIPs = 198.51.100.0/24
`

const testConfigDifferentCasing = `# a wireguard config used for testing
[interface]
address = 192.0.2.0/32
privatekey = ` + testPrivateKey + `
[peer]
publickey = exo1pplobaxsocdfs7gpwjcg+5vmqzd9pk73yqxxos8=
presharedkey = ` + testPresharedKey + `
endpoint = 192.0.2.1/32:51820
allowedips = 198.51.100.0/24
`

var testConfigs = map[string]string{
	"testConfig":                testConfig,
	"testConfigDifferentCasing": testConfigDifferentCasing,
}

func TestParseConfig(t *testing.T) {
	want := &ParsedConfig{
		Address: "192.0.2.0/32",
		Peers: []Peer{{
			Endpoint:   "192.0.2.1/32:51820",
			AllowedIPs: []string{"198.51.100.0/24"},
		}},
	}
	for name, text := range testConfigs {
		got, err := ParseConfig(text)
		if err != nil {
			t.Fatalf("%s: ParseConfig: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %+v, want %+v", name, got, want)
		}
	}
}

func TestParseConfigEmptyIsNoConfig(t *testing.T) {
	cfg, err := ParseConfig("")
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("err = %v, want ErrNoConfig", err)
	}
	if cfg != nil {
		t.Errorf("cfg = %+v, want nil", cfg)
	}
}

func TestParseConfigGarbageYieldsDefaults(t *testing.T) {
	cfg, err := ParseConfig("this is not\n an ini file at all\n[[\n")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Address != "" || len(cfg.Peers) != 0 {
		t.Errorf("got %+v, want empty defaults", cfg)
	}
}

func TestParseConfigInterfaceOnly(t *testing.T) {
	cfg, err := ParseConfig("[Interface]\nAddress = 10.0.0.2/32\n")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != "10.0.0.2/32" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if len(cfg.Peers) != 0 {
		t.Errorf("Peers = %+v, want none without a [Peer] section", cfg.Peers)
	}
}

func TestParseConfigComments(t *testing.T) {
	text := `Address = 10.9.9.9/32
[Interface] # trailing comment
Address = 10.0.0.1/32 # inline
[Peer]
Endpoint = vpn.example.com:51820
AllowedIPs = 10.0.0.0/8 , 192.168.1.0/24,, fd00::/8
# AllowedIPs = 0.0.0.0/0
`
	cfg, err := ParseConfig(text)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Address != "10.0.0.1/32" {
		t.Errorf("Address = %q, want value from [Interface] not main", cfg.Address)
	}
	wantIPs := []string{"10.0.0.0/8", "192.168.1.0/24", "fd00::/8"}
	if !reflect.DeepEqual(cfg.Peers[0].AllowedIPs, wantIPs) {
		t.Errorf("AllowedIPs = %q, want %q", cfg.Peers[0].AllowedIPs, wantIPs)
	}
}

func TestStripCommentEscapedHash(t *testing.T) {
	if got := stripComment(`Key = a\#b # comment`); got != "Key = a#b " {
		t.Errorf("stripComment = %q", got)
	}
	if got := stripComment("no comment"); got != "no comment" {
		t.Errorf("stripComment = %q", got)
	}
}

func TestParseConfigMultiPeerLastWins(t *testing.T) {
	text := `[Interface]
Address = 10.0.0.1/32
[Peer]
Endpoint = a.example:1
AllowedIPs = 10.1.0.0/16
[Peer]
Endpoint = b.example:2
`
	cfg, err := ParseConfig(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Peers) != 1 {
		t.Fatalf("Peers = %d, want single collapsed peer", len(cfg.Peers))
	}
	if cfg.Peers[0].Endpoint != "b.example:2" {
		t.Errorf("Endpoint = %q, want last assignment", cfg.Peers[0].Endpoint)
	}
	if !reflect.DeepEqual(cfg.Peers[0].AllowedIPs, []string{"10.1.0.0/16"}) {
		t.Errorf("AllowedIPs = %q, want value kept from the first peer", cfg.Peers[0].AllowedIPs)
	}
}

func TestParseConfigReaderError(t *testing.T) {
	_, err := ParseConfigReader(errReader{})
	if err == nil {
		t.Fatal("expected read error")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestCensorRemovesSecrets(t *testing.T) {
	for name, text := range testConfigs {
		out := Censor(text)
		if strings.Contains(out, testPrivateKey) {
			t.Errorf("%s: private key leaked:\n%s", name, out)
		}
		if strings.Contains(out, testPresharedKey) {
			t.Errorf("%s: preshared key leaked:\n%s", name, out)
		}
		if !strings.Contains(out, "\nPrivateKey = ***\n") {
			t.Errorf("%s: missing sentinel line:\n%s", name, out)
		}
		if !strings.Contains(out, "\nPresharedKey = ***\n") {
			t.Errorf("%s: missing preshared sentinel line:\n%s", name, out)
		}
		// Non-secret content survives and still parses.
		cfg, err := ParseConfig(out)
		if err != nil || cfg.Address != "192.0.2.0/32" {
			t.Errorf("%s: censored text no longer parses: %+v %v", name, cfg, err)
		}
	}
}

func TestCensorLeavesOtherTextUnchanged(t *testing.T) {
	text := "[Interface]\nAddress = 10.0.0.1/32\n[Peer]\nPublicKey = abc=\n"
	if got := Censor(text); got != text {
		t.Errorf("Censor changed text without secrets:\n%s", got)
	}
}

func TestCensorIndentedAndNoEquals(t *testing.T) {
	text := "  privateKey=" + testPrivateKey + "\nPrivateKey\n"
	out := Censor(text)
	if strings.Contains(out, testPrivateKey) {
		t.Errorf("indented key leaked: %q", out)
	}
	if out != "PrivateKey = ***\nPrivateKey = ***\n" {
		t.Errorf("Censor = %q", out)
	}

	// Any leading whitespace or byte order mark the parser skips.
	for _, prefix := range []string{"\f", "\v", "\xEF\xBB\xBF", "\u00a0", " \t\r"} {
		text := prefix + "PrivateKey = " + testPrivateKey + "\n[Interface]\n" + prefix + "presharedkey=" + testPresharedKey + "\n"
		out := Censor(text)
		if strings.Contains(out, testPrivateKey) || strings.Contains(out, testPresharedKey) {
			t.Errorf("prefix %q: key leaked: %q", prefix, out)
		}
		if want := "PrivateKey = ***\n[Interface]\nPresharedKey = ***\n"; out != want {
			t.Errorf("prefix %q: Censor = %q, want %q", prefix, out, want)
		}
	}

	// Keys that merely start with the same letters are not secrets.
	if text := "PrivateKeyFile = /etc/key\n"; Censor(text) != text {
		t.Errorf("Censor changed %q", text)
	}
}
