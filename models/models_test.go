package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("u2", "u1")
	assert.Equal(t, "u1", a)
	assert.Equal(t, "u2", b)

	a2, b2 := CanonicalPair("u1", "u2")
	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

func TestConversationHelpers(t *testing.T) {
	property := "p-1"
	conv := Conversation{
		ParticipantAID:    "u1",
		ParticipantBID:    "u2",
		RelatedPropertyID: &property,
		Participants:      []ConversationParticipant{{UserID: "u2", UnreadCount: 3}},
	}

	assert.True(t, conv.HasParticipant("u1"))
	assert.False(t, conv.HasParticipant("u3"))
	assert.False(t, conv.HasParticipant(""))
	assert.Equal(t, "u2", conv.OtherParticipantID("u1"))
	assert.Equal(t, "u1", conv.OtherParticipantID("u2"))
	assert.Equal(t, map[string]int{"u1": 0, "u2": 3}, conv.UnreadCounts())
	assert.True(t, conv.HasRelatedItem())
	assert.Nil(t, conv.Participant("u1"))
}

func TestIdentity(t *testing.T) {
	admin := Identity{ID: "root", Role: RoleAdmin}
	assert.True(t, admin.IsPrivileged())

	u := Identity{ID: "u1", FullName: "Léa", AvatarURL: "https://cdn.example/a.png"}.User()
	assert.Equal(t, RoleVisitor, u.Role)
	if assert.NotNil(t, u.AvatarURL) {
		assert.Equal(t, "https://cdn.example/a.png", *u.AvatarURL)
	}
	assert.False(t, u.ID == "" || u.FullName == "")
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusArchived.Valid())
	assert.False(t, ConversationStatus("deleted").Valid())
}

func TestErrorCodesRoundTrip(t *testing.T) {
	for _, err := range []error{ErrInvalidParticipants, ErrInvalidContent, ErrInvalidStatus, ErrNotAParticipant, ErrForbidden, ErrNotFound, ErrTransientIO} {
		code := ErrorCode(err)
		assert.NotEmpty(t, code)
		assert.Equal(t, err, ErrorForCode(code))
	}
	assert.Empty(t, ErrorCode(assert.AnError))
	assert.Nil(t, ErrorForCode("unknown"))
}
