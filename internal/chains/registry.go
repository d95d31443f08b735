// Package chains maps network ids to their names and endpoints.
package chains

import (
	"strconv"

	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/config"
)

// Chain describes one network.
type Chain struct {
	ID          uint64
	Name        string
	RPCURL      string
	SubgraphURL string
}

var wellKnownNames = map[uint64]string{
	1:  "mainnet",
	3:  "ropsten",
	4:  "rinkeby",
	42: "kovan",
}

// Registry is a read-only lookup built once at startup.
type Registry struct {
	supported uint64
	chains    map[uint64]Chain
}

// NewRegistry builds the registry from configuration.
func NewRegistry(cfg config.ChainConfig) (*Registry, error) {
	r := &Registry{
		supported: cfg.SupportedChainID,
		chains:    make(map[uint64]Chain, len(cfg.Chains)),
	}

	for key, ep := range cfg.Chains {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext("chain id "+key))
		}
		name := ep.Name
		if name == "" {
			name = wellKnownNames[id]
		}
		r.chains[id] = Chain{
			ID:          id,
			Name:        name,
			RPCURL:      ep.RPCURL,
			SubgraphURL: ep.SubgraphURL,
		}
	}

	if _, ok := r.chains[r.supported]; !ok {
		return nil, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithMessage("supported chain has no configured endpoints"),
			apperror.WithContext(strconv.FormatUint(r.supported, 10)))
	}

	return r, nil
}

// Get returns the chain for id.
func (r *Registry) Get(id uint64) (Chain, error) {
	c, ok := r.chains[id]
	if !ok {
		return Chain{}, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(strconv.FormatUint(id, 10)))
	}
	return c, nil
}

// IsSupported reports whether id is the single supported chain.
func (r *Registry) IsSupported(id uint64) bool {
	return id != 0 && id == r.supported
}

// SupportedChainID returns the supported chain id.
func (r *Registry) SupportedChainID() uint64 { return r.supported }

// Supported returns the supported chain.
func (r *Registry) Supported() Chain { return r.chains[r.supported] }

// BackupURL returns the fixed RPC endpoint of the supported chain.
func (r *Registry) BackupURL() string { return r.chains[r.supported].RPCURL }

// SubgraphURL returns the indexing-service endpoint of the supported chain.
func (r *Registry) SubgraphURL() string { return r.chains[r.supported].SubgraphURL }

// Name returns a display name for id, falling back to the decimal id.
func (r *Registry) Name(id uint64) string {
	if c, ok := r.chains[id]; ok && c.Name != "" {
		return c.Name
	}
	if n, ok := wellKnownNames[id]; ok {
		return n
	}
	return strconv.FormatUint(id, 10)
}
