package chains

import (
	"testing"

	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/config"
)

func testConfig() config.ChainConfig {
	return config.ChainConfig{
		SupportedChainID: 42,
		Chains: map[string]config.ChainEndpoint{
			"1":  {RPCURL: "https://mainnet/rpc", SubgraphURL: "https://graph/mainnet"},
			"42": {RPCURL: "https://kovan/rpc", SubgraphURL: "https://graph/kovan"},
		},
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		name      string
		id        uint64
		wantName  string
		supported bool
		wantErr   bool
	}{
		{name: "supported", id: 42, wantName: "kovan", supported: true},
		{name: "configured not supported", id: 1, wantName: "mainnet"},
		{name: "well known without endpoints", id: 3, wantName: "ropsten", wantErr: true},
		{name: "unknown", id: 1337, wantName: "1337", wantErr: true},
		{name: "absent", id: 0, wantName: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Name(tt.id); got != tt.wantName {
				t.Errorf("Name = %q, want %q", got, tt.wantName)
			}
			if got := r.IsSupported(tt.id); got != tt.supported {
				t.Errorf("IsSupported = %v, want %v", got, tt.supported)
			}
			_, err := r.Get(tt.id)
			if tt.wantErr && apperror.GetCode(err) != apperror.CodeUnsupportedChain {
				t.Errorf("Get error = %v, want UNSUPPORTED_CHAIN", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Get unexpected error: %v", err)
			}
		})
	}

	if r.BackupURL() != "https://kovan/rpc" {
		t.Errorf("BackupURL = %q", r.BackupURL())
	}
	if r.SubgraphURL() != "https://graph/kovan" {
		t.Errorf("SubgraphURL = %q", r.SubgraphURL())
	}
}

func TestNewRegistry_SupportedMissing(t *testing.T) {
	cfg := testConfig()
	cfg.SupportedChainID = 4

	_, err := NewRegistry(cfg)
	if apperror.GetCode(err) != apperror.CodeUnsupportedChain {
		t.Fatalf("expected UNSUPPORTED_CHAIN, got %v", err)
	}
}
