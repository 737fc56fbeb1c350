package alerts

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rlezama/flotilla/internal/models"
	slackapi "github.com/slack-go/slack"
)

type mockSlackClient struct {
	channels []string
	err      error
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channels = append(m.channels, channelID)
	return channelID, "ts", m.err
}

type mockSession struct {
	contents []string
	err      error
}

func (m *mockSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.contents = append(m.contents, content)
	return &discordgo.Message{Content: content}, m.err
}

func blockedUnit() *models.Unit {
	return &models.Unit{
		NumeroEconomico: "ECO-9",
		Placas:          "ABC-123-D",
		Status:          models.UnitBloqueado,
		RazonBloqueo:    "2 documentos vencidos, 1 llantas críticas",
	}
}

func TestFormatUnitBlocked(t *testing.T) {
	msg := FormatUnitBlocked(blockedUnit())
	for _, want := range []string{"ECO-9", "2 documentos vencidos", "ABC-123-D"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestSlackSender(t *testing.T) {
	mock := &mockSlackClient{}
	s := NewSlack(SlackOpts{ChannelID: "C123", Client: mock})
	s.UnitBlocked(blockedUnit())

	if len(mock.channels) != 1 || mock.channels[0] != "C123" {
		t.Errorf("posts = %v, want one to C123", mock.channels)
	}
}

func TestSlackSender_FailureSwallowed(t *testing.T) {
	mock := &mockSlackClient{err: errors.New("rate limited")}
	s := NewSlack(SlackOpts{ChannelID: "C123", Client: mock})
	// Must not panic or propagate.
	s.UnitBlocked(blockedUnit())
}

func TestDiscordSender(t *testing.T) {
	mock := &mockSession{}
	d, err := NewDiscord(DiscordOpts{ChannelID: "987", Session: mock})
	if err != nil {
		t.Fatalf("new discord: %v", err)
	}
	d.UnitBlocked(blockedUnit())

	if len(mock.contents) != 1 || !strings.Contains(mock.contents[0], "ECO-9") {
		t.Errorf("sends = %v, want one naming ECO-9", mock.contents)
	}
}

func TestMultiFansOut(t *testing.T) {
	slackMock := &mockSlackClient{}
	discordMock := &mockSession{}
	d, err := NewDiscord(DiscordOpts{ChannelID: "987", Session: discordMock})
	if err != nil {
		t.Fatalf("new discord: %v", err)
	}

	m := Multi{NewSlack(SlackOpts{ChannelID: "C123", Client: slackMock}), d}
	m.UnitBlocked(blockedUnit())

	if len(slackMock.channels) != 1 || len(discordMock.contents) != 1 {
		t.Errorf("fan-out = (%d, %d), want (1, 1)", len(slackMock.channels), len(discordMock.contents))
	}
}
