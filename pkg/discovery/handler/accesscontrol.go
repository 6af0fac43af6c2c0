package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/aomilabs/agentcore/internal/agent"
	"github.com/aomilabs/agentcore/pkg/discovery/decode"
	"github.com/aomilabs/agentcore/pkg/discovery/logfeed"
)

// OpenZeppelin AccessControl event signatures (fixed, unlike event-mode
// handlers which take an arbitrary signature from configuration).
const (
	roleGrantedSig      = "RoleGranted(bytes32,address,address)"
	roleRevokedSig      = "RoleRevoked(bytes32,address,address)"
	roleAdminChangedSig = "RoleAdminChanged(bytes32,bytes32,bytes32)"
)

// defaultAdminRole is the bytes32(0) sentinel OpenZeppelin uses for the
// root admin role.
var defaultAdminRole = common.Hash{}

// roleState is the reconstructed state of one role: who administers it and
// who currently holds it.
type roleState struct {
	adminRole common.Hash
	members   map[common.Address]struct{}
}

// AccessControlHandler reconstructs OpenZeppelin AccessControl role state
// by replaying RoleGranted/RoleRevoked/RoleAdminChanged events. roleNames
// maps a human role name to its bytes32 hash hex string, e.g.
// {"MINTER_ROLE": "0xabc..."} — the same direction pick_role_members is
// resolved in (see SPEC_FULL.md §4.5).
type AccessControlHandler struct {
	field           string
	roleNames       map[string]string
	pickRoleMembers string
	hidden          bool
	log             zerolog.Logger
}

// NewAccessControl builds an AccessControlHandler from an AccessControl
// HandlerDefinition.
func NewAccessControl(field string, def agent.HandlerDefinition, log zerolog.Logger) (*AccessControlHandler, error) {
	if def.Mode != agent.ModeAccessControl {
		return nil, agent.Errorf(agent.KindConfig, "expected access control handler definition for field %q", field)
	}
	return &AccessControlHandler{
		field:           field,
		roleNames:       def.RoleNames,
		pickRoleMembers: def.PickRoleMembers,
		hidden:          def.IgnoreRelative,
		log:             log.With().Str("component", "accesscontrol").Str("field", field).Logger(),
	}, nil
}

// Field returns the output field name.
func (h *AccessControlHandler) Field() string { return h.field }

// Hidden reports whether this field is omitted from the user-facing
// projection.
func (h *AccessControlHandler) Hidden() bool { return h.hidden }

// Execute fetches and replays all three AccessControl event types over
// [fromBlock, toBlock] and formats the resulting role map.
func (h *AccessControlHandler) Execute(
	ctx context.Context,
	fetcher *logfeed.Fetcher,
	address common.Address,
	fromBlock, toBlock uint64,
) agent.HandlerResult {
	topic0s := []common.Hash{
		decode.Topic0(roleGrantedSig),
		decode.Topic0(roleRevokedSig),
		decode.Topic0(roleAdminChangedSig),
	}

	logs, err := fetcher.FetchSignatures(ctx, address, topic0s, fromBlock, toBlock)
	if err != nil {
		return agent.HandlerResult{
			Field:  h.field,
			Error:  agent.Wrap(agent.KindFetch, err, "fetch access control logs").Error(),
			Hidden: h.hidden,
		}
	}

	roles := h.replay(logs, topic0s[0], topic0s[1], topic0s[2])
	value := h.formatOutput(roles)
	return agent.HandlerResult{Field: h.field, Value: &value, Hidden: h.hidden}
}

func (h *AccessControlHandler) replay(
	logs []types.Log,
	grantedTopic, revokedTopic, adminChangedTopic common.Hash,
) map[common.Hash]*roleState {
	roles := make(map[common.Hash]*roleState)

	ensure := func(role common.Hash) *roleState {
		rs, ok := roles[role]
		if !ok {
			rs = &roleState{adminRole: defaultAdminRole, members: make(map[common.Address]struct{})}
			roles[role] = rs
		}
		return rs
	}

	for _, l := range logs {
		if len(l.Topics) < 3 {
			continue
		}
		topic0 := l.Topics[0]
		role := l.Topics[1]

		switch topic0 {
		case grantedTopic:
			account := topicToAddress(l.Topics[2])
			ensure(role).members[account] = struct{}{}
		case revokedTopic:
			account := topicToAddress(l.Topics[2])
			if rs, ok := roles[role]; ok {
				delete(rs.members, account)
			}
		case adminChangedTopic:
			newAdminRole := l.Topics[2]
			ensure(role).adminRole = newAdminRole
		}
	}

	return roles
}

// formatOutput projects replayed role state to a HandlerValue: a single
// role's member list when pickRoleMembers is set, otherwise a full
// role-name -> {adminRole, members} map.
func (h *AccessControlHandler) formatOutput(roles map[common.Hash]*roleState) agent.HandlerValue {
	if h.pickRoleMembers != "" {
		target := h.pickRoleHash()
		if rs, ok := roles[target]; ok {
			return agent.ArrayValue(addressMembers(rs.members))
		}
		return agent.ArrayValue(nil)
	}

	result := make(map[string]agent.HandlerValue, len(roles))
	for roleHash, rs := range roles {
		roleName := h.roleName(roleHash)
		result[roleName] = agent.ObjectValue(map[string]agent.HandlerValue{
			"adminRole": agent.StringValue(h.roleName(rs.adminRole)),
			"members":   agent.ArrayValue(addressMembers(rs.members)),
		})
	}
	return agent.ObjectValue(result)
}

// pickRoleHash resolves pickRoleMembers to the target role hash: the
// DEFAULT_ADMIN_ROLE sentinel, the configured name->hash mapping if one
// exists, or keccak256(pickRoleMembers) as a fallback (SPEC_FULL.md §4.5).
func (h *AccessControlHandler) pickRoleHash() common.Hash {
	if h.pickRoleMembers == "DEFAULT_ADMIN_ROLE" {
		return defaultAdminRole
	}
	if hash, ok := h.roleNames[h.pickRoleMembers]; ok {
		return common.HexToHash(hash)
	}
	return crypto.Keccak256Hash([]byte(h.pickRoleMembers))
}

// roleName resolves a role hash to its configured name, the
// DEFAULT_ADMIN_ROLE sentinel, or the raw hex hash if unnamed. roleNames
// maps name->hash, so this is a reverse lookup over that map.
func (h *AccessControlHandler) roleName(role common.Hash) string {
	if role == defaultAdminRole {
		return "DEFAULT_ADMIN_ROLE"
	}
	for name, hash := range h.roleNames {
		if common.HexToHash(hash) == role {
			return name
		}
	}
	return role.Hex()
}

func topicToAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes()[12:32])
}

func addressMembers(members map[common.Address]struct{}) []agent.HandlerValue {
	out := make([]agent.HandlerValue, 0, len(members))
	for addr := range members {
		out = append(out, agent.AddressValue(addr.Hex()))
	}
	return out
}
