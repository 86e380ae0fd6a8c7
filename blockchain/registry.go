package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/types"
)

// OrganizationRecord is the decoded registry entry for one organization.
type OrganizationRecord struct {
	ID          string
	MetadataURI []byte
	Owner       common.Address
	Members     []common.Address
	ServiceIDs  []string
}

// ServiceRecord is the decoded registry entry for one service.
type ServiceRecord struct {
	OrgID       string
	ID          string
	MetadataURI []byte
}

// ListOrganizations returns all organization ids in the registry.
func (g *Gateway) ListOrganizations(ctx context.Context) ([]string, error) {
	out, err := g.call(ctx, g.registry, registryABI, "listOrganizations")
	if err != nil {
		return nil, err
	}
	raw := out[0].([][32]byte)
	ids := make([]string, 0, len(raw))
	for _, b := range raw {
		ids = append(ids, Bytes32ToString(b))
	}
	return ids, nil
}

// GetOrganizationByID fetches one organization record.
func (g *Gateway) GetOrganizationByID(ctx context.Context, orgID string) (*OrganizationRecord, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, g.registry, registryABI, "getOrganizationById", key)
	if err != nil {
		return nil, err
	}
	if !out[0].(bool) {
		return nil, types.E(types.ErrMetadataSchema, "organization %q is not registered", orgID)
	}
	rawServices := out[5].([][32]byte)
	services := make([]string, 0, len(rawServices))
	for _, b := range rawServices {
		services = append(services, Bytes32ToString(b))
	}
	return &OrganizationRecord{
		ID:          Bytes32ToString(out[1].([32]byte)),
		MetadataURI: out[2].([]byte),
		Owner:       out[3].(common.Address),
		Members:     out[4].([]common.Address),
		ServiceIDs:  services,
	}, nil
}

// GetServiceRegistrationByID fetches one service record.
func (g *Gateway) GetServiceRegistrationByID(ctx context.Context, orgID, serviceID string) (*ServiceRecord, error) {
	orgKey, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	svcKey, err := StringToBytes32(serviceID)
	if err != nil {
		return nil, err
	}
	out, err := g.call(ctx, g.registry, registryABI, "getServiceRegistrationById", orgKey, svcKey)
	if err != nil {
		return nil, err
	}
	if !out[0].(bool) {
		return nil, types.E(types.ErrMetadataSchema, "service %q/%q is not registered", orgID, serviceID)
	}
	return &ServiceRecord{
		OrgID:       orgID,
		ID:          Bytes32ToString(out[1].([32]byte)),
		MetadataURI: out[2].([]byte),
	}, nil
}

// CreateOrganization registers a new organization.
func (g *Gateway) CreateOrganization(ctx context.Context, orgID string, metadataURI []byte, members []common.Address) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "createOrganization", key, metadataURI, members)
}

// ChangeOrganizationMetadataURI repoints an organization's metadata.
func (g *Gateway) ChangeOrganizationMetadataURI(ctx context.Context, orgID string, metadataURI []byte) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "changeOrganizationMetadataURI", key, metadataURI)
}

// ChangeOrganizationOwner hands an organization to a new owner.
func (g *Gateway) ChangeOrganizationOwner(ctx context.Context, orgID string, newOwner common.Address) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "changeOrganizationOwner", key, newOwner)
}

// AddOrganizationMembers grants membership.
func (g *Gateway) AddOrganizationMembers(ctx context.Context, orgID string, members []common.Address) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "addOrganizationMembers", key, members)
}

// RemoveOrganizationMembers revokes membership.
func (g *Gateway) RemoveOrganizationMembers(ctx context.Context, orgID string, members []common.Address) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "removeOrganizationMembers", key, members)
}

// DeleteOrganization removes an organization and its services.
func (g *Gateway) DeleteOrganization(ctx context.Context, orgID string) (*TxResult, error) {
	key, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "deleteOrganization", key)
}

// CreateServiceRegistration registers a service under an organization.
func (g *Gateway) CreateServiceRegistration(ctx context.Context, orgID, serviceID string, metadataURI []byte) (*TxResult, error) {
	orgKey, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	svcKey, err := StringToBytes32(serviceID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "createServiceRegistration", orgKey, svcKey, metadataURI)
}

// UpdateServiceRegistration repoints a service's metadata.
func (g *Gateway) UpdateServiceRegistration(ctx context.Context, orgID, serviceID string, metadataURI []byte) (*TxResult, error) {
	orgKey, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	svcKey, err := StringToBytes32(serviceID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "updateServiceRegistration", orgKey, svcKey, metadataURI)
}

// DeleteServiceRegistration removes a service.
func (g *Gateway) DeleteServiceRegistration(ctx context.Context, orgID, serviceID string) (*TxResult, error) {
	orgKey, err := StringToBytes32(orgID)
	if err != nil {
		return nil, err
	}
	svcKey, err := StringToBytes32(serviceID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, g.registry, registryABI, "deleteServiceRegistration", orgKey, svcKey)
}
