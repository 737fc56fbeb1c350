package alerts

import (
	"log"

	"github.com/rlezama/flotilla/internal/models"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts block alerts to one Slack channel.
type Slack struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a Slack sender.
type SlackOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack sender.
func NewSlack(opts SlackOpts) *Slack {
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.BotToken)
	}
	return &Slack{client: client, channelID: opts.ChannelID}
}

// UnitBlocked posts the block alert. Failures are logged and swallowed.
func (s *Slack) UnitBlocked(unit *models.Unit) {
	_, _, err := s.client.PostMessage(s.channelID,
		slackapi.MsgOptionText(FormatUnitBlocked(unit), false))
	if err != nil {
		log.Printf("alerts: slack post for unit %s: %v", unit.NumeroEconomico, err)
	}
}
