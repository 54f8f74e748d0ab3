package models

import "time"

// Conversation is keyed by the unordered pair of its participants,
// stored with User1ID < User2ID.
type Conversation struct {
	Base
	User1ID       string     `json:"user1Id" gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_pair"`
	User2ID       string     `json:"user2Id" gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_pair;index"`
	User1         *User      `json:"user1,omitempty" gorm:"foreignKey:User1ID"`
	User2         *User      `json:"user2,omitempty" gorm:"foreignKey:User2ID"`
	LastMessage   string     `json:"lastMessage" gorm:"type:text"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID is one side of the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the id of the side that is not userID.
func (c Conversation) OtherParticipant(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

type Message struct {
	Base
	ConversationID string     `json:"conversationId" gorm:"type:varchar(36);not null;index"`
	SenderID       string     `json:"senderId" gorm:"type:varchar(36);not null;index"`
	ReceiverID     string     `json:"receiverId" gorm:"type:varchar(36);not null;index"`
	Content        string     `json:"content" gorm:"type:text;not null"`
	IsRead         bool       `json:"isRead" gorm:"not null;default:false"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
