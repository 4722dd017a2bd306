package config

import (
	"strings"
	"testing"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
	solclient "github.com/nullmatrix0/zaunch/internal/solana"
)

func validTestConfig() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Chain: solclient.ClientConfig{
			RPCEndpoints: []string{"http://localhost:8899"},
		},
		Programs: endpoint.ProgramAddresses{
			Bridge:           "BridgeProgram1111111111111111111111111111111",
			Endpoint:         "EndpointProgram111111111111111111111111111111",
			DirectLibrary:    "DirectLib11111111111111111111111111111111111",
			ValidatedLibrary: "ValidatedLib111111111111111111111111111111111",
		},
		Bridge: BridgeConfig{KeystorePath: "/tmp/keypair.json"},
	}
}

func TestValidateConfig_Defaults(t *testing.T) {
	cfg := validTestConfig()

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}
	if cfg.Chain.Commitment != "finalized" {
		t.Errorf("Commitment default mismatch: got %q", cfg.Chain.Commitment)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port default mismatch: got %d", cfg.Server.Port)
	}
}

func TestValidateConfig_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing environment", func(c *Config) { c.Environment = "" }, "environment"},
		{"unknown environment", func(c *Config) { c.Environment = "staging" }, "unsupported environment"},
		{"no rpc endpoints", func(c *Config) { c.Chain.RPCEndpoints = nil }, "RPC endpoint"},
		{"no bridge program", func(c *Config) { c.Programs.Bridge = "" }, "bridge program"},
		{"no libraries", func(c *Config) { c.Programs.DirectLibrary = "" }, "library"},
		{"no signing key", func(c *Config) { c.Bridge = BridgeConfig{} }, "keystore_path"},
		{"queue without urls", func(c *Config) { c.Queue.Enabled = true }, "queue"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(cfg)

			err := ValidateConfig(cfg)
			if err == nil {
				t.Fatal("ValidateConfig should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Error %q should mention %q", err, tc.want)
			}
		})
	}
}
