package relay

// Event kinds recognized by the relay.
const (
	KindChatMessage uint16 = 9
	KindChatReply   uint16 = 10
	KindNote        uint16 = 11
	KindNoteReply   uint16 = 12

	KindModAddUser      uint16 = 9000
	KindModRemoveUser   uint16 = 9001
	KindModEditMetadata uint16 = 9002
	KindModDeleteEvent  uint16 = 9005
	KindModDeleteGroup  uint16 = 9008

	KindJoinRequest  uint16 = 9021
	KindLeaveRequest uint16 = 9022

	KindRelayAuth uint16 = 22242

	KindDKGInit       uint16 = 28000
	KindDKGRound1     uint16 = 28001
	KindDKGRound2     uint16 = 28002
	KindDKGCompletion uint16 = 28003

	KindCapabilityGrant    uint16 = 29000
	KindCapabilityRevoke   uint16 = 29001
	KindCapabilityDelegate uint16 = 29002

	KindGroupMetadata uint16 = 39000
	KindGroupAdmins   uint16 = 39001
	KindGroupMembers  uint16 = 39002
)

// moderationPermissions maps a moderation kind to the permission an
// admin must hold to issue it.
var moderationPermissions = map[uint16]Permission{
	KindModAddUser:      PermissionAddUser,
	KindModRemoveUser:   PermissionRemoveUser,
	KindModEditMetadata: PermissionEditMetadata,
	KindModDeleteEvent:  PermissionDeleteEvent,
	KindModDeleteGroup:  PermissionDeleteGroup,
}

// isChatOrNote reports whether kind is one of the chat/note kinds
// (9,10,11,12), which require a write capability or group membership.
func isChatOrNote(kind uint16) bool {
	return kind >= KindChatMessage && kind <= KindNoteReply
}

// isModeration reports whether kind is in the moderation range 9000-9020.
func isModeration(kind uint16) bool {
	return kind >= 9000 && kind <= 9020
}

// isCapabilityEvent reports whether kind is one of the three capability
// event kinds.
func isCapabilityEvent(kind uint16) bool {
	return kind >= KindCapabilityGrant && kind <= KindCapabilityDelegate
}

// requiresGroupSigner reports whether kind may only be signed by the
// community's root key: grants, revokes, and relay-signed metadata.
// Delegate events are signed by the delegating grant holder instead, and
// their signer is validated against the parent grant during admission.
func requiresGroupSigner(kind uint16) bool {
	return kind == KindCapabilityGrant || kind == KindCapabilityRevoke || isMetadataKind(kind)
}

// isGroupUserOrModerationKind reports whether kind belongs to the family
// gated on a group-id tag and group existence: chat/note, moderation,
// and join/leave kinds.
func isGroupUserOrModerationKind(kind uint16) bool {
	return isChatOrNote(kind) || isModeration(kind) || kind == KindJoinRequest || kind == KindLeaveRequest
}

// isMetadataKind reports whether kind is a relay-signed metadata kind,
// exempted from the "previous" prefix requirement.
func isMetadataKind(kind uint16) bool {
	return kind >= KindGroupMetadata && kind <= KindGroupMembers
}

// isKnownKind reports whether kind is one the relay handles. Events of
// unrecognized kinds draw a NOTICE rather than an OK or a disconnect.
func isKnownKind(kind uint16) bool {
	switch {
	case isChatOrNote(kind), isModeration(kind), isCapabilityEvent(kind), isMetadataKind(kind):
		return true
	case kind == KindJoinRequest, kind == KindLeaveRequest, kind == KindRelayAuth:
		return true
	case kind >= KindDKGInit && kind <= KindDKGCompletion:
		return true
	}
	return false
}
