package types

import (
	"math/big"
	"strings"
)

// Encoding names accepted in service metadata.
const (
	EncodingProto = "proto"
	EncodingJSON  = "json"
)

// Pricing models accepted in service metadata.
const (
	PriceModelFixed     = "fixed_price"
	PriceModelPerMethod = "fixed_price_per_method"
)

// OrganizationMetadata is the JSON document referenced by the registry's
// organization record. Services inherit group_id and the payout address
// from these groups, matched by group_name.
type OrganizationMetadata struct {
	OrgName     string     `json:"org_name" validate:"required"`
	OrgID       string     `json:"org_id" validate:"required"`
	Description string     `json:"description,omitempty"`
	Groups      []OrgGroup `json:"groups" validate:"required,min=1,dive"`
}

// OrgGroup is one payment group declared by an organization.
type OrgGroup struct {
	GroupName string     `json:"group_name" validate:"required"`
	GroupID   GroupID    `json:"group_id"`
	Payment   OrgPayment `json:"payment" validate:"required"`
}

// OrgPayment carries the payout configuration of an organization group.
type OrgPayment struct {
	PaymentAddress             string `json:"payment_address" validate:"required"`
	PaymentExpirationThreshold uint64 `json:"payment_expiration_threshold"`
	PaymentChannelStorageType  string `json:"payment_channel_storage_type,omitempty"`
}

// Group returns the organization group with the given name.
func (m *OrganizationMetadata) Group(name string) (*OrgGroup, bool) {
	for i := range m.Groups {
		if m.Groups[i].GroupName == name {
			return &m.Groups[i], true
		}
	}
	return nil, false
}

// ServiceMetadata is the JSON document referenced by the registry's service
// record. The resolver refuses documents whose MPEAddress does not match the
// escrow contract the client is configured for.
type ServiceMetadata struct {
	Version       int            `json:"version"`
	DisplayName   string         `json:"display_name"`
	Encoding      string         `json:"encoding" validate:"required,oneof=proto json"`
	ServiceType   string         `json:"service_type" validate:"required"`
	ModelHash     string         `json:"model_ipfs_hash" validate:"required"`
	MPEAddress    string         `json:"mpe_address" validate:"required"`
	Groups        []ServiceGroup `json:"groups" validate:"required,min=1,dive"`
	ServiceDesc   map[string]any `json:"service_description,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	MediaLicenses map[string]any `json:"media,omitempty"`
}

// ServiceGroup is one payment group of a service. Recipient is filled in by
// the resolver from the matching organization group; it is not part of the
// service document itself.
type ServiceGroup struct {
	GroupName             string    `json:"group_name" validate:"required"`
	GroupID               GroupID   `json:"group_id"`
	Pricing               []Pricing `json:"pricing" validate:"required,min=1,dive"`
	Endpoints             []string  `json:"endpoints" validate:"required,min=1"`
	FreeCalls             int       `json:"free_calls,omitempty"`
	FreeCallSignerAddress string    `json:"free_call_signer_address,omitempty"`
	DaemonAddresses       []string  `json:"daemon_addresses,omitempty"`

	Recipient string `json:"-"`
}

// Pricing is either a fixed per-group price in cogs or a per-method table.
type Pricing struct {
	PriceModel  string         `json:"price_model" validate:"required,oneof=fixed_price fixed_price_per_method"`
	PriceInCogs *BigInt        `json:"price_in_cogs,omitempty"`
	Default     bool           `json:"default,omitempty"`
	Details     []MethodPrices `json:"details,omitempty"`
}

// MethodPrices is the per-method pricing table for one proto service.
type MethodPrices struct {
	ServiceName   string        `json:"service_name"`
	MethodPricing []MethodPrice `json:"method_pricing"`
}

// MethodPrice prices one method.
type MethodPrice struct {
	MethodName  string  `json:"method_name"`
	PriceInCogs *BigInt `json:"price_in_cogs"`
}

// Group returns the service group with the given name, or the only group
// when name is empty.
func (m *ServiceMetadata) Group(name string) (*ServiceGroup, bool) {
	if name == "" && len(m.Groups) == 1 {
		return &m.Groups[0], true
	}
	for i := range m.Groups {
		if m.Groups[i].GroupName == name {
			return &m.Groups[i], true
		}
	}
	return nil, false
}

// Price resolves the price in cogs for a fully qualified method name
// ("package.Service/Method"). The default pricing entry wins; per-method
// tables fall back to the fixed price when the method is absent.
func (g *ServiceGroup) Price(fullMethod string) (*big.Int, error) {
	var chosen *Pricing
	for i := range g.Pricing {
		if g.Pricing[i].Default {
			chosen = &g.Pricing[i]
			break
		}
	}
	if chosen == nil {
		chosen = &g.Pricing[0]
	}
	switch chosen.PriceModel {
	case PriceModelFixed:
		if chosen.PriceInCogs == nil {
			return nil, E(ErrMetadataSchema, "group %q: fixed_price without price_in_cogs", g.GroupName)
		}
		return chosen.PriceInCogs.Unwrap(), nil
	case PriceModelPerMethod:
		service, method := splitMethod(fullMethod)
		for _, d := range chosen.Details {
			if d.ServiceName != service {
				continue
			}
			for _, mp := range d.MethodPricing {
				if mp.MethodName == method {
					return mp.PriceInCogs.Unwrap(), nil
				}
			}
		}
		if chosen.PriceInCogs != nil {
			return chosen.PriceInCogs.Unwrap(), nil
		}
		return nil, E(ErrMetadataSchema, "group %q: no price for method %q", g.GroupName, fullMethod)
	}
	return nil, E(ErrMetadataSchema, "group %q: unknown price model %q", g.GroupName, chosen.PriceModel)
}

func splitMethod(full string) (service, method string) {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return strings.TrimPrefix(full[:i], "/"), full[i+1:]
	}
	return "", full
}
