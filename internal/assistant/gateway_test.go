package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickethub/tickethub/internal/domain"
	"github.com/tickethub/tickethub/internal/observability"
)

type fakeSnapshots struct {
	active    int
	nextEvent domain.Event
	nextErr   error
	events    []domain.Event
}

func (f *fakeSnapshots) ActiveTicketCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.active, nil
}

func (f *fakeSnapshots) NextUserEvent(ctx context.Context, userID uuid.UUID) (domain.Event, error) {
	return f.nextEvent, f.nextErr
}

func (f *fakeSnapshots) EventsAfter(ctx context.Context, now time.Time) ([]domain.Event, error) {
	return f.events, nil
}

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestGatewayGreeting(t *testing.T) {
	client := &fakeClient{}
	g := NewGateway(client, &fakeSnapshots{active: 2}, observability.NewLogger())
	userID := uuid.New()

	reply := g.Reply(context.Background(), ReplyRequest{Message: "hello there", UserID: &userID})
	assert.Equal(t, "canned", reply.Source)
	assert.Equal(t, LangEnglish, reply.Language)
	assert.Contains(t, reply.Text, "2 active tickets")
	assert.Zero(t, client.calls, "canned intents never hit the model")
}

func TestGatewayExpiryIntent(t *testing.T) {
	userID := uuid.New()
	snaps := &fakeSnapshots{
		nextEvent: domain.Event{Name: "Jazz Night", Date: time.Now().Add(72 * time.Hour)},
	}
	g := NewGateway(&fakeClient{}, snaps, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "when does my ticket expire?", UserID: &userID})
	assert.Equal(t, "canned", reply.Source)
	assert.Contains(t, reply.Text, "Jazz Night")
}

func TestGatewayExpiryIntentNoTickets(t *testing.T) {
	userID := uuid.New()
	snaps := &fakeSnapshots{nextErr: domain.ErrTicketNotFound}
	g := NewGateway(&fakeClient{}, snaps, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "ticket expiry please", UserID: &userID})
	assert.Contains(t, reply.Text, "don't have any valid tickets")
}

func TestGatewayEventsIntentPerLanguage(t *testing.T) {
	snaps := &fakeSnapshots{events: []domain.Event{
		{Name: "Jazz Night", Date: time.Now().Add(24 * time.Hour), Location: "Stadium"},
		{Name: "Film Week", Date: time.Now().Add(48 * time.Hour), Location: "Cinema"},
	}}
	g := NewGateway(&fakeClient{}, snaps, observability.NewLogger())

	en := g.Reply(context.Background(), ReplyRequest{Message: "what events are coming?"})
	require.Equal(t, "canned", en.Source)
	assert.Contains(t, en.Text, "Jazz Night")

	kri := g.Reply(context.Background(), ReplyRequest{Message: "what events are coming?", Language: LangKrio})
	assert.Equal(t, LangKrio, kri.Language)
	assert.Contains(t, kri.Text, "Jazz Night")
	assert.NotEqual(t, en.Text, kri.Text)
}

func TestGatewayModelPath(t *testing.T) {
	client := &fakeClient{reply: "[EN] You can pay with credits."}
	g := NewGateway(client, &fakeSnapshots{}, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "can I pay with credits?"})
	assert.Equal(t, "model", reply.Source)
	assert.Equal(t, "You can pay with credits.", reply.Text, "echoed language tag is stripped")
}

func TestGatewayDegradedOnClientFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("api down")}
	g := NewGateway(client, &fakeSnapshots{}, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "tell me about refunds"})
	assert.Equal(t, "degraded", reply.Source)
	assert.Equal(t, languagePrompts[LangEnglish].Error, reply.Text)
}

func TestGatewayUnsupportedLanguageDefaultsToEnglish(t *testing.T) {
	g := NewGateway(&fakeClient{reply: "ok"}, &fakeSnapshots{}, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "question about parking", Language: "fr"})
	assert.Equal(t, LangEnglish, reply.Language)
}

func TestGatewayDetectsAmharic(t *testing.T) {
	g := NewGateway(&fakeClient{reply: "ok"}, &fakeSnapshots{}, observability.NewLogger())

	reply := g.Reply(context.Background(), ReplyRequest{Message: "ሰላም"})
	assert.Equal(t, LangAmharic, reply.Detected)
	assert.Equal(t, LangAmharic, reply.Language)
	assert.Equal(t, "canned", reply.Source, "Amharic greeting answers from the phrase table")
}
