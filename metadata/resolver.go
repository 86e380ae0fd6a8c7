package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/types"
)

const (
	cacheSize = 256
	cacheTTL  = 10 * time.Minute
)

// RegistryReader is the slice of the chain gateway the resolver needs.
type RegistryReader interface {
	GetOrganizationByID(ctx context.Context, orgID string) (*blockchain.OrganizationRecord, error)
	GetServiceRegistrationByID(ctx context.Context, orgID, serviceID string) (*blockchain.ServiceRecord, error)
}

// Resolver turns registry records into validated metadata documents. It
// refuses documents whose content hash does not match the URI and service
// documents bound to a different escrow contract.
type Resolver struct {
	registry RegistryReader
	fetcher  Fetcher
	mpe      common.Address
	validate *validator.Validate
	orgs     *cache.Cache[string, *types.OrganizationMetadata]
	services *cache.Cache[string, *types.ServiceMetadata]
	diskDir  string
	log      logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDiskCache mirrors fetched documents under dir, laid out as
// {dir}/{orgID}/organization.json and {dir}/{orgID}/{serviceID}.json.
func WithDiskCache(dir string) Option {
	return func(r *Resolver) { r.diskDir = dir }
}

// WithLogger installs a logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// NewResolver builds a resolver bound to one escrow contract address.
func NewResolver(registry RegistryReader, fetcher Fetcher, mpe common.Address, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		fetcher:  fetcher,
		mpe:      mpe,
		validate: validator.New(),
		orgs:     cache.New(cache.AsLRU[string, *types.OrganizationMetadata](lru.WithCapacity(cacheSize))),
		services: cache.New(cache.AsLRU[string, *types.ServiceMetadata](lru.WithCapacity(cacheSize))),
		log:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Organization resolves and validates an organization's metadata document.
func (r *Resolver) Organization(ctx context.Context, orgID string) (*types.OrganizationMetadata, error) {
	if md, ok := r.orgs.Get(orgID); ok {
		return md, nil
	}
	record, err := r.registry.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	blob, err := r.fetchVerified(ctx, record.MetadataURI)
	if err != nil {
		return nil, err
	}
	var md types.OrganizationMetadata
	if err := json.Unmarshal(blob, &md); err != nil {
		return nil, types.E(types.ErrMetadataSchema, "organization %q metadata: %v", orgID, err)
	}
	if err := r.validate.Struct(&md); err != nil {
		return nil, types.E(types.ErrMetadataSchema, "organization %q metadata: %v", orgID, err)
	}
	r.orgs.Set(orgID, &md, cache.WithExpiration(cacheTTL))
	r.mirror(filepath.Join(orgID, "organization.json"), blob)
	return &md, nil
}

// Service resolves a service's metadata, checks it is bound to this
// resolver's escrow contract, and fills each group's payout recipient from
// the matching organization group.
func (r *Resolver) Service(ctx context.Context, orgID, serviceID string) (*types.ServiceMetadata, error) {
	key := orgID + "/" + serviceID
	if md, ok := r.services.Get(key); ok {
		return md, nil
	}
	record, err := r.registry.GetServiceRegistrationByID(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}
	blob, err := r.fetchVerified(ctx, record.MetadataURI)
	if err != nil {
		return nil, err
	}
	var md types.ServiceMetadata
	if err := json.Unmarshal(blob, &md); err != nil {
		return nil, types.E(types.ErrMetadataSchema, "service %q metadata: %v", key, err)
	}
	if err := r.validate.Struct(&md); err != nil {
		return nil, types.E(types.ErrMetadataSchema, "service %q metadata: %v", key, err)
	}
	if !strings.EqualFold(md.MPEAddress, r.mpe.Hex()) {
		return nil, types.E(types.ErrMetadataEscrowMismatch,
			"service %q trusts escrow %s, client is configured for %s", key, md.MPEAddress, r.mpe.Hex())
	}
	if err := r.checkGroupNames(&md); err != nil {
		return nil, err
	}

	org, err := r.Organization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range md.Groups {
		og, ok := org.Group(md.Groups[i].GroupName)
		if !ok {
			return nil, types.E(types.ErrMetadataUnknownGroup,
				"service group %q has no matching organization group", md.Groups[i].GroupName)
		}
		md.Groups[i].GroupID = og.GroupID
		md.Groups[i].Recipient = og.Payment.PaymentAddress
	}

	r.services.Set(key, &md, cache.WithExpiration(cacheTTL))
	r.mirror(filepath.Join(orgID, serviceID+".json"), blob)
	return &md, nil
}

func (r *Resolver) checkGroupNames(md *types.ServiceMetadata) error {
	seen := map[string]bool{}
	for _, g := range md.Groups {
		if seen[g.GroupName] {
			return types.E(types.ErrMetadataSchema, "duplicate group name %q", g.GroupName)
		}
		seen[g.GroupName] = true
	}
	return nil
}

func (r *Resolver) fetchVerified(ctx context.Context, uri []byte) ([]byte, error) {
	storage, hash, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	blob, err := r.fetcher.Fetch(ctx, storage, hash)
	if err != nil {
		return nil, err
	}
	if err := VerifyContent(hash, blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// mirror writes a verified document to the disk cache, atomically. Failures
// are logged and ignored: the mirror is a convenience, not a contract.
func (r *Resolver) mirror(rel string, blob []byte) {
	if r.diskDir == "" {
		return
	}
	path := filepath.Join(r.diskDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.log.Warn("metadata mirror failed", map[string]any{"path": path, "err": err.Error()})
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".metadata-*")
	if err != nil {
		r.log.Warn("metadata mirror failed", map[string]any{"path": path, "err": err.Error()})
		return
	}
	if _, err := tmp.Write(blob); err == nil {
		err = tmp.Close()
		if err == nil {
			err = os.Rename(tmp.Name(), path)
		}
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		r.log.Warn("metadata mirror failed", map[string]any{"path": path, "err": err.Error()})
	}
}
