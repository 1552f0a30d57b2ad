package types

// Client -> Server (field "type")
//
//	register_presenter:   {}
//	register_participant: name: string
//	create_poll:          question: string, options: string[], timeLimit?: number (10..300, default 60)
//	submit_vote:          optionIndex: number
//	end_poll:             {}
//	get_poll_history:     {}
//	remove_participant:   participantId: string
//	send_message:         text: string
const (
	CmdRegisterPresenter   = "register_presenter"
	CmdRegisterParticipant = "register_participant"
	CmdCreatePoll          = "create_poll"
	CmdSubmitVote          = "submit_vote"
	CmdEndPoll             = "end_poll"
	CmdGetPollHistory      = "get_poll_history"
	CmdRemoveParticipant   = "remove_participant"
	CmdSendMessage         = "send_message"
)

// Server -> Client. Every event is wrapped in
// {type, success, message, code?, data?|details?}.
//
//	success:             reply to the caller (registration ack, vote ack, removal ack)
//	error:               reply to the caller only; code is one of the Code* values
//	poll_created:        PollView without counts (broadcast, or to a late joiner)
//	poll_results:        live Results (broadcast)
//	poll_ended:          final Results (broadcast)
//	participant_removed: sent to the removed participant right before its connection closes
//	poll_history:        HistoryEntry[] most recent first (presenter only)
//	participants_list:   RosterPayload (broadcast)
//	receive_message:     ChatMessage (broadcast)
const (
	EventSuccess            = "success"
	EventError              = "error"
	EventPollCreated        = "poll_created"
	EventPollResults        = "poll_results"
	EventPollEnded          = "poll_ended"
	EventParticipantRemoved = "participant_removed"
	EventPollHistory        = "poll_history"
	EventParticipantsList   = "participants_list"
	EventReceiveMessage     = "receive_message"
)

const (
	CodeInvalidName       = "INVALID_NAME"
	CodeNameConflict      = "NAME_CONFLICT"
	CodeInvalidPollData   = "INVALID_POLL_DATA"
	CodePollAlreadyActive = "POLL_ALREADY_ACTIVE"
	CodePendingResponses  = "PENDING_RESPONSES"
	CodeNoActivePoll      = "NO_ACTIVE_POLL"
	CodeAlreadyVoted      = "ALREADY_VOTED"
	CodeInvalidOption     = "INVALID_OPTION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeRemoved           = "REMOVED"
)
