package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/realtime"
)

func TestOrderedPair(t *testing.T) {
	a, b := orderedPair("b", "a")
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	a, b = orderedPair("a", "b")
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestStartConversation_OnePerPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	first, err := env.svc.Chat.Start(ctx, tenant.ID, inspector.ID)
	require.NoError(t, err)
	second, err := env.svc.Chat.Start(ctx, inspector.ID, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Less(t, first.User1ID, first.User2ID)

	_, err = env.svc.Chat.Start(ctx, tenant.ID, tenant.ID)
	requireAppError(t, err, http.StatusBadRequest, "participantId")

	_, err = env.svc.Chat.Start(ctx, tenant.ID, "missing")
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestSendAndRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	outsider := env.addUser(t, models.RoleTenant, "kari@example.no")

	msg, err := env.svc.Chat.Send(ctx, tenant.ID, inspector.ID, "<script>x</script>Hei, når kan du komme?")
	require.NoError(t, err)
	assert.Equal(t, "Hei, når kan du komme?", msg.Content)
	assert.Equal(t, 1, env.emitter.count(inspector.ID, realtime.EventReceiveMessage))
	assert.Equal(t, 1, env.emitter.count(tenant.ID, realtime.EventMessageSent))

	// The receiver was offline, so a notification was stored.
	count, err := env.svc.Notifications.UnreadCount(ctx, inspector.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	env.emitter.setOnline(tenant.ID)
	_, err = env.svc.Chat.Send(ctx, inspector.ID, tenant.ID, "I morgen kl 10")
	require.NoError(t, err)
	count, err = env.svc.Notifications.UnreadCount(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = env.svc.Chat.Send(ctx, tenant.ID, inspector.ID, "Takk")
	require.NoError(t, err)

	views, err := env.svc.Chat.Conversations(ctx, inspector.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.EqualValues(t, 2, views[0].UnreadCount)
	assert.Equal(t, "Takk", views[0].LastMessage)

	convID := views[0].ID
	_, err = env.svc.Chat.Messages(ctx, outsider.ID, convID, NewPagination(1, 10))
	requireAppError(t, err, http.StatusForbidden, "")

	page, err := env.svc.Chat.Messages(ctx, inspector.ID, convID, NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Takk", page.Items[2].Content)

	updated, err := env.svc.Chat.MarkRead(ctx, inspector.ID, convID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
	assert.Equal(t, 1, env.emitter.count(tenant.ID, realtime.EventMessagesRead))

	updated, err = env.svc.Chat.MarkRead(ctx, inspector.ID, convID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated)
}

func TestSend_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	_, err := env.svc.Chat.Send(ctx, tenant.ID, inspector.ID, "  <b></b> ")
	requireAppError(t, err, http.StatusBadRequest, "content")

	_, err = env.svc.Chat.Send(ctx, tenant.ID, inspector.ID, strings.Repeat("a", maxMessageLength+1))
	requireAppError(t, err, http.StatusBadRequest, "content")

	_, err = env.svc.Chat.Send(ctx, tenant.ID, tenant.ID, "Hei")
	requireAppError(t, err, http.StatusBadRequest, "receiverId")

	_, err = env.svc.Chat.Send(ctx, tenant.ID, "missing", "Hei")
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "kort", preview("kort"))
	long := strings.Repeat("æ", 100)
	assert.Equal(t, strings.Repeat("æ", 80)+"…", preview(long))
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")

	env.svc.Notifications.Notify(ctx, user.ID, models.NotificationCaseStatusChanged, "Første", "a", nil)
	env.svc.Notifications.Notify(ctx, user.ID, models.NotificationCaseStatusChanged, "Andre", "b", nil)
	env.svc.Notifications.Notify(ctx, other.ID, models.NotificationCaseStatusChanged, "Annen", "c", nil)
	assert.Equal(t, 2, env.emitter.count(user.ID, realtime.EventNotification))

	page, err := env.svc.Notifications.List(ctx, user.ID, false, NewPagination(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)

	first := page.Items[0].ID
	require.NoError(t, env.svc.Notifications.MarkRead(ctx, user.ID, first))
	err = env.svc.Notifications.MarkRead(ctx, other.ID, first)
	requireAppError(t, err, http.StatusNotFound, "")

	page, err = env.svc.Notifications.List(ctx, user.ID, true, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	n, err := env.svc.Notifications.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := env.svc.Notifications.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	require.NoError(t, env.svc.Notifications.Delete(ctx, user.ID, first))
	err = env.svc.Notifications.Delete(ctx, user.ID, first)
	requireAppError(t, err, http.StatusNotFound, "")
}
