package blockchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract ABIs, trimmed to the surface the client uses. The channelClaim
// entry is the 7-argument form of the current escrow contract
// (actualAmount/plannedAmount/isFinal).
const mpeABIJSON = `
[
  {"name":"balances","type":"function","stateMutability":"view",
   "inputs":[{"name":"","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"channels","type":"function","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"nonce","type":"uint256"},
     {"name":"sender","type":"address"},
     {"name":"signer","type":"address"},
     {"name":"recipient","type":"address"},
     {"name":"groupId","type":"bytes32"},
     {"name":"value","type":"uint256"},
     {"name":"expiration","type":"uint256"}]},
  {"name":"nextChannelId","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"deposit","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"withdraw","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"transfer","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"receiver","type":"address"},{"name":"value","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"openChannel","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"signer","type":"address"},
     {"name":"recipient","type":"address"},
     {"name":"groupId","type":"bytes32"},
     {"name":"value","type":"uint256"},
     {"name":"expiration","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"channelAddFunds","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"channelId","type":"uint256"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"channelExtend","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"channelId","type":"uint256"},{"name":"newExpiration","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"channelExtendAndAddFunds","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"channelId","type":"uint256"},
     {"name":"newExpiration","type":"uint256"},
     {"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"name":"channelClaim","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"channelId","type":"uint256"},
     {"name":"actualAmount","type":"uint256"},
     {"name":"plannedAmount","type":"uint256"},
     {"name":"v","type":"uint8"},
     {"name":"r","type":"bytes32"},
     {"name":"s","type":"bytes32"},
     {"name":"isSendback","type":"bool"}],
   "outputs":[]},
  {"name":"channelClaimTimeout","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"channelId","type":"uint256"}],"outputs":[]},
  {"name":"ChannelOpen","type":"event","anonymous":false,
   "inputs":[
     {"name":"channelId","type":"uint256","indexed":false},
     {"name":"nonce","type":"uint256","indexed":false},
     {"name":"sender","type":"address","indexed":true},
     {"name":"signer","type":"address","indexed":false},
     {"name":"recipient","type":"address","indexed":true},
     {"name":"groupId","type":"bytes32","indexed":true},
     {"name":"amount","type":"uint256","indexed":false},
     {"name":"expiration","type":"uint256","indexed":false}]},
  {"name":"ChannelClaim","type":"event","anonymous":false,
   "inputs":[
     {"name":"channelId","type":"uint256","indexed":false},
     {"name":"nonce","type":"uint256","indexed":false},
     {"name":"recipient","type":"address","indexed":true},
     {"name":"claimAmount","type":"uint256","indexed":false},
     {"name":"plannedAmount","type":"uint256","indexed":false},
     {"name":"sendBackAmount","type":"uint256","indexed":false},
     {"name":"keepAmount","type":"uint256","indexed":false}]},
  {"name":"ChannelAddFunds","type":"event","anonymous":false,
   "inputs":[
     {"name":"channelId","type":"uint256","indexed":false},
     {"name":"additionalFunds","type":"uint256","indexed":false}]},
  {"name":"ChannelExtend","type":"event","anonymous":false,
   "inputs":[
     {"name":"channelId","type":"uint256","indexed":false},
     {"name":"newExpiration","type":"uint256","indexed":false}]},
  {"name":"DepositFunds","type":"event","anonymous":false,
   "inputs":[
     {"name":"sender","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false}]},
  {"name":"WithdrawFunds","type":"event","anonymous":false,
   "inputs":[
     {"name":"sender","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false}]},
  {"name":"TransferFunds","type":"event","anonymous":false,
   "inputs":[
     {"name":"sender","type":"address","indexed":true},
     {"name":"receiver","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false}]}
]`

const registryABIJSON = `
[
  {"name":"listOrganizations","type":"function","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"orgIds","type":"bytes32[]"}]},
  {"name":"getOrganizationById","type":"function","stateMutability":"view",
   "inputs":[{"name":"orgId","type":"bytes32"}],
   "outputs":[
     {"name":"found","type":"bool"},
     {"name":"id","type":"bytes32"},
     {"name":"orgMetadataURI","type":"bytes"},
     {"name":"owner","type":"address"},
     {"name":"members","type":"address[]"},
     {"name":"serviceIds","type":"bytes32[]"}]},
  {"name":"getServiceRegistrationById","type":"function","stateMutability":"view",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"serviceId","type":"bytes32"}],
   "outputs":[
     {"name":"found","type":"bool"},
     {"name":"id","type":"bytes32"},
     {"name":"metadataURI","type":"bytes"}]},
  {"name":"createOrganization","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"orgMetadataURI","type":"bytes"},
     {"name":"members","type":"address[]"}],
   "outputs":[]},
  {"name":"changeOrganizationMetadataURI","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"orgMetadataURI","type":"bytes"}],
   "outputs":[]},
  {"name":"changeOrganizationOwner","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"newOwner","type":"address"}],
   "outputs":[]},
  {"name":"addOrganizationMembers","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"newMembers","type":"address[]"}],
   "outputs":[]},
  {"name":"removeOrganizationMembers","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"existingMembers","type":"address[]"}],
   "outputs":[]},
  {"name":"deleteOrganization","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"orgId","type":"bytes32"}],"outputs":[]},
  {"name":"createServiceRegistration","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"serviceId","type":"bytes32"},
     {"name":"metadataURI","type":"bytes"}],
   "outputs":[]},
  {"name":"updateServiceRegistration","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"serviceId","type":"bytes32"},
     {"name":"metadataURI","type":"bytes"}],
   "outputs":[]},
  {"name":"deleteServiceRegistration","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"orgId","type":"bytes32"},
     {"name":"serviceId","type":"bytes32"}],
   "outputs":[]}
]`

const tokenABIJSON = `
[
  {"name":"balanceOf","type":"function","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"allowance","type":"function","stateMutability":"view",
   "inputs":[
     {"name":"owner","type":"address"},
     {"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable",
   "inputs":[
     {"name":"spender","type":"address"},
     {"name":"value","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("blockchain: bad ABI: " + err.Error())
	}
	return parsed
}

var (
	mpeABI      = mustParseABI(mpeABIJSON)
	registryABI = mustParseABI(registryABIJSON)
	tokenABI    = mustParseABI(tokenABIJSON)
)
