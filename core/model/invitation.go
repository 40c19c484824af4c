package model

// Invitation is the payload pushed to a candidate responder. The field set
// is a fixed contract with the responder-side client application and must
// not change per call.
type Invitation struct {
	// Type discriminates invitation messages from other push payloads.
	Type          string `json:"type"`
	RequestID     string `json:"request_id"`
	SessionID     string `json:"session_id"`
	Credential    string `json:"credential"`
	RequesterID   string `json:"requester_id"`
	ResponderName string `json:"responder_name"`
}

// InvitationType is the fixed value of Invitation.Type.
const InvitationType = "call"

// NewInvitation builds the payload for one delivery attempt.
func NewInvitation(requestID, sessionID, credential, requesterID string, to Responder) Invitation {
	return Invitation{
		Type:          InvitationType,
		RequestID:     requestID,
		SessionID:     sessionID,
		Credential:    credential,
		RequesterID:   requesterID,
		ResponderName: to.Name,
	}
}
