package dbusstats

import "github.com/randomizedcoder/go-monitord/internal/wire"

// Keys of the dbus-broker specific entries in the GetStats reply.
const (
	PeerAccountingKey = "org.bus1.DBus.Debug.Stats.PeerAccounting"
	UserAccountingKey = "org.bus1.DBus.Debug.Stats.UserAccounting"
)

// DecodePeerAccounting decodes an a(sa{sv}a{su}) peer accounting array.
//
// ok is false only when v is not an array. Elements that are not a
// (string, dict, dict) struct are skipped. Inside a well-formed element a
// missing or wrong-typed key leaves that field nil without affecting the
// others. A repeated peer id keeps the last element.
func DecodePeerAccounting(v wire.Value) (peers map[string]PeerAccounting, ok bool) {
	items, ok := v.Items()
	if !ok {
		return nil, false
	}
	peers = make(map[string]PeerAccounting, len(items))
	for _, item := range items {
		peer, ok := decodePeer(item)
		if !ok {
			continue
		}
		peers[peer.ID] = peer
	}
	return peers, true
}

func decodePeer(v wire.Value) (PeerAccounting, bool) {
	fields, ok := v.Fields()
	if !ok || len(fields) < 3 {
		return PeerAccounting{}, false
	}
	id, ok := fields[0].Str()
	if !ok {
		return PeerAccounting{}, false
	}
	creds, stats := fields[1], fields[2]
	if creds.Kind() != wire.KindDict || stats.Kind() != wire.KindDict {
		return PeerAccounting{}, false
	}

	peer := PeerAccounting{
		ID:         id,
		UnixUserID: creds.LookupUint32("UnixUserID"),
		ProcessID:  creds.LookupUint32("ProcessID"),
		Counters: Counters{
			NameObjects:            stats.LookupUint32("NameObjects"),
			MatchBytes:             stats.LookupUint32("MatchBytes"),
			Matches:                stats.LookupUint32("Matches"),
			ReplyObjects:           stats.LookupUint32("ReplyObjects"),
			IncomingBytes:          stats.LookupUint32("IncomingBytes"),
			IncomingFds:            stats.LookupUint32("IncomingFds"),
			OutgoingBytes:          stats.LookupUint32("OutgoingBytes"),
			OutgoingFds:            stats.LookupUint32("OutgoingFds"),
			ActivationRequestBytes: stats.LookupUint32("ActivationRequestBytes"),
			ActivationRequestFds:   stats.LookupUint32("ActivationRequestFds"),
		},
	}
	if gids := creds.LookupUint32s("UnixGroupIDs"); gids != nil {
		peer.UnixGroupIDs = &gids
	}
	return peer, true
}

// DecodeUserAccounting decodes an a(ua(suu)a{ua{su}}) user accounting
// array. Only the (name, cur, max) quota triples are read.
//
// ok is false only when v is not an array. Elements that are not a
// (uint, array) struct are skipped; malformed or unknown triples inside a
// well-formed element are skipped individually. Usernames are left empty.
func DecodeUserAccounting(v wire.Value) (users map[uint32]UserAccounting, ok bool) {
	items, ok := v.Items()
	if !ok {
		return nil, false
	}
	users = make(map[uint32]UserAccounting, len(items))
	for _, item := range items {
		user, ok := decodeUser(item)
		if !ok {
			continue
		}
		users[user.UID] = user
	}
	return users, true
}

func decodeUser(v wire.Value) (UserAccounting, bool) {
	fields, ok := v.Fields()
	if !ok || len(fields) < 2 {
		return UserAccounting{}, false
	}
	uid, ok := fields[0].StrictUint32()
	if !ok {
		return UserAccounting{}, false
	}
	triples, ok := fields[1].Items()
	if !ok {
		return UserAccounting{}, false
	}

	user := UserAccounting{UID: uid}
	for _, t := range triples {
		name, pair, ok := decodeQuota(t)
		if !ok {
			continue
		}
		switch name {
		case "Bytes":
			user.Bytes = &pair
		case "Fds":
			user.Fds = &pair
		case "Matches":
			user.Matches = &pair
		case "Objects":
			user.Objects = &pair
		}
	}
	return user, true
}

func decodeQuota(v wire.Value) (string, CurMaxPair, bool) {
	fields, ok := v.Fields()
	if !ok || len(fields) < 3 {
		return "", CurMaxPair{}, false
	}
	name, ok := fields[0].Str()
	if !ok {
		return "", CurMaxPair{}, false
	}
	cur, okCur := fields[1].StrictUint32()
	limit, okMax := fields[2].StrictUint32()
	if !okCur || !okMax {
		return "", CurMaxPair{}, false
	}
	return name, CurMaxPair{Cur: cur, Max: limit}, true
}
