package session

import (
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
	"github.com/luxfi/qsp/pkg/wire"
)

// MatchHello implements §4.J steps 3-4: a connecting Participant sends a
// clear-text HELLO containing its public key; the Host matches it against
// registry[*].owner_public_t. An unmatched HELLO is reported so the caller
// can drop it with a warning rather than open a channel to an unknown peer.
//
// It also returns the fixed session index this participant keeps for the
// duration of the recovery (§4.E: "parties MUST be placed at fixed indices"),
// assigned by sorting every registered alias with party.IDSlice and locating
// this one in it. A manifest whose registry lists the same alias twice
// cannot assign a unique index and is rejected outright.
//
// Grounded on the original network layer's peer bring-up
// (src/network/p2p_manager.py), whose HELLO/ACK handshake this spec
// folds into the authenticated channel of §4.I rather than trusting it on
// its own.
func MatchHello(manifest *wire.Manifest, helloPK *latticekey.PublicKey) (id party.ID, index int, ok bool) {
	aliases := make(party.IDSlice, 0, len(manifest.Registry))
	for _, entry := range manifest.Registry {
		alias := party.ID(entry.OwnerAlias)
		if aliases.Contains(alias) {
			return "", -1, false
		}
		aliases = append(aliases, alias)
	}

	for _, entry := range manifest.Registry {
		if vectorEqual(helloPK.T, entry.OwnerPublicT) {
			id = party.ID(entry.OwnerAlias)
			return id, aliases.Sorted().Index(id), true
		}
	}
	return "", -1, false
}

func vectorEqual(v ring.Vector, ints [][]int64) bool {
	if len(v) != len(ints) {
		return false
	}
	for i, p := range v {
		enc := p.Encode()
		if len(enc) != len(ints[i]) {
			return false
		}
		for j := range enc {
			if enc[j] != ints[i][j] {
				return false
			}
		}
	}
	return true
}
