package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/realtime"
)

const maxMessageLength = 5000

type ChatService struct {
	db            *gorm.DB
	emitter       realtime.Emitter
	notifications *NotificationService
}

func NewChatService(db *gorm.DB, emitter realtime.Emitter, notifications *NotificationService) *ChatService {
	return &ChatService{db: db, emitter: emitter, notifications: notifications}
}

// ConversationView is a conversation with the caller's unread count.
type ConversationView struct {
	models.Conversation
	UnreadCount int64 `json:"unreadCount"`
}

func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// findOrCreateConversation returns the single conversation between a and b.
// A concurrent insert of the same pair is absorbed by the unique index.
func findOrCreateConversation(tx *gorm.DB, a, b string) (*models.Conversation, error) {
	user1, user2 := orderedPair(a, b)

	var conv models.Conversation
	err := tx.Where("user1_id = ? AND user2_id = ?", user1, user2).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.Conversation{User1ID: user1, User2ID: user2}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
		return nil, err
	}
	// Re-read into a fresh value: the insert may have lost the race.
	var stored models.Conversation
	if err := tx.Where("user1_id = ? AND user2_id = ?", user1, user2).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (chs *ChatService) requireUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := chs.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromGorm(err, "user")
	}
	return &user, nil
}

func (chs *ChatService) Conversations(ctx context.Context, userID string) ([]ConversationView, error) {
	var convs []models.Conversation
	err := chs.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Preload("User1").Preload("User2").
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&convs).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "conversations")
	}

	type unreadRow struct {
		ConversationID string
		Unread         int64
	}
	var rows []unreadRow
	err = chs.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "messages")
	}
	unread := make(map[string]int64, len(rows))
	for _, r := range rows {
		unread[r.ConversationID] = r.Unread
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, ConversationView{Conversation: c, UnreadCount: unread[c.ID]})
	}
	return views, nil
}

// Start opens (or returns) the conversation with participantID.
func (chs *ChatService) Start(ctx context.Context, userID, participantID string) (*models.Conversation, error) {
	if participantID == userID {
		return nil, apperrors.NewFieldError("participantId", "You cannot start a conversation with yourself")
	}
	if _, err := chs.requireUser(ctx, participantID); err != nil {
		return nil, err
	}
	conv, err := findOrCreateConversation(chs.db.WithContext(ctx), userID, participantID)
	if err != nil {
		return nil, apperrors.FromGorm(err, "conversation")
	}
	return conv, nil
}

func (chs *ChatService) conversationFor(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := chs.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, apperrors.FromGorm(err, "conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.NewForbiddenError("You are not part of this conversation")
	}
	return &conv, nil
}

// Messages returns a page of the conversation, oldest first.
func (chs *ChatService) Messages(ctx context.Context, userID, conversationID string, p Pagination) (*Page[models.Message], error) {
	if _, err := chs.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	query := chs.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "messages")
	}
	var items []models.Message
	if err := query.Order("created_at ASC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, apperrors.FromGorm(err, "messages")
	}
	return &Page[models.Message]{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

// Send stores a message and pushes it to both participants' rooms.
func (chs *ChatService) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = CleanText(content)
	if content == "" {
		return nil, apperrors.NewFieldError("content", "Message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.NewFieldError("content", "Message is too long")
	}
	if receiverID == senderID {
		return nil, apperrors.NewFieldError("receiverId", "You cannot message yourself")
	}
	sender, err := chs.requireUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := chs.requireUser(ctx, receiverID); err != nil {
		return nil, err
	}

	var msg models.Message
	err = chs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := findOrCreateConversation(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		msg = models.Message{
			ConversationID: conv.ID,
			SenderID:       senderID,
			ReceiverID:     receiverID,
			Content:        content,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
			"last_message":    content,
			"last_message_at": msg.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "message")
	}

	chs.emitter.Emit(receiverID, realtime.EventReceiveMessage, msg)
	chs.emitter.Emit(senderID, realtime.EventMessageSent, msg)

	if presence, ok := chs.emitter.(interface{ Online(string) bool }); ok && !presence.Online(receiverID) {
		chs.notifications.Notify(ctx, receiverID, models.NotificationNewMessage,
			"Ny melding fra "+sender.FullName(), preview(content), nil)
	}
	return &msg, nil
}

func preview(s string) string {
	const n = 80
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// MarkRead marks everything the user received in the conversation as read and
// tells the other side.
func (chs *ChatService) MarkRead(ctx context.Context, userID, conversationID string) (int64, error) {
	conv, err := chs.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	res := chs.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conv.ID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, apperrors.FromGorm(res.Error, "messages")
	}

	if res.RowsAffected > 0 {
		chs.emitter.Emit(conv.OtherParticipant(userID), realtime.EventMessagesRead, map[string]interface{}{
			"conversationId": conv.ID,
			"readBy":         userID,
			"count":          res.RowsAffected,
		})
	}
	return res.RowsAffected, nil
}
