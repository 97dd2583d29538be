package network

// Message ids. 1xx flow client -> server, 2xx server -> client.
const (
	MsgTypeHeartbeat = 1

	MsgTypeCreateRoom       = 101
	MsgTypeJoinRoom         = 102
	MsgTypeAddBot           = 103
	MsgTypeRemoveBot        = 104
	MsgTypeSetBotDifficulty = 105
	MsgTypeStartMatch       = 106
	MsgTypePlayCards        = 107
	MsgTypePassTurn         = 108
	MsgTypeResync           = 109
	MsgTypeReconnect        = 110
	MsgTypeListRooms        = 111

	MsgTypeRoomSnapshot   = 201
	MsgTypeHandSnapshot   = 202
	MsgTypeError          = 203
	MsgTypeRoomList       = 204
	MsgTypeSessionExpired = 205
	MsgTypeRoomCreated    = 206
)
