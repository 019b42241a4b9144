// Package common contains shared constants and sentinel errors used across
// docvault components.
package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "authorization"

// Durable key-value entries. Each key is debounced independently.
const (
	KeyConversations = "adt_chat_conversations"
	KeyDocuments     = "adt_documents"
	KeyAccessToken   = "adt_token"
	KeyRefreshToken  = "adt_refresh_token"
)

// MimePDF is the only accepted upload type.
const MimePDF = "application/pdf"
